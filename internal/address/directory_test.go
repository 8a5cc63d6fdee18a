package address_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StoreFront/internal/address"
	"StoreFront/internal/backend"
)

const serverID = "64a1b2c3d4e5f6a7b8c9d0e1"

type fakeBackend struct {
	listResp []backend.Address
	listErr  error

	createResp func(draft backend.Address) backend.Address
	createErr  error
}

func (f *fakeBackend) ListAddresses(context.Context, string, string) ([]backend.Address, error) {
	return f.listResp, f.listErr
}

func (f *fakeBackend) CreateAddress(_ context.Context, _, _ string, draft backend.Address) (backend.Address, error) {
	if f.createErr != nil {
		return backend.Address{}, f.createErr
	}
	return f.createResp(draft), nil
}

func newDirectory(b *fakeBackend) *address.Directory {
	return address.NewDirectory(b, address.NewMemCacheStore(), zap.NewNop())
}

func TestList_MapsAndPicksDefault(t *testing.T) {
	b := &fakeBackend{listResp: []backend.Address{
		{ID: "64a1b2c3d4e5f6a7b8c9d0e0", Name: "A", Pincode: "110001"},
		{ID: serverID, Name: "B", Pincode: "560001", DefaultAddress: true},
	}}
	d := newDirectory(b)

	list, err := d.List(context.Background(), "sess", "cust")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "loc_"+serverID, list[1].LocalID)
	require.True(t, list[1].Saved())

	def, ok := address.Default(list)
	require.True(t, ok)
	require.Equal(t, "B", def.RecipientName)

	// Without a default flag the first entry wins.
	noDefault := []address.Address{{RecipientName: "X"}, {RecipientName: "Y"}}
	def, ok = address.Default(noDefault)
	require.True(t, ok)
	require.Equal(t, "X", def.RecipientName)
}

func TestCreate_ReconcilesOptimisticEntryInPlace(t *testing.T) {
	b := &fakeBackend{
		createResp: func(draft backend.Address) backend.Address {
			draft.ID = serverID // server issues the ID, echoes the clientRef
			return draft
		},
	}
	d := newDirectory(b)

	created, err := d.Create(context.Background(), "sess", "cust", address.Address{
		RecipientName: "Asha",
		Line1:         "12 MG Road",
		Pincode:       "560001",
	})
	require.NoError(t, err)
	require.Equal(t, serverID, created.ServerID)
	require.True(t, created.Saved())
	require.NotEmpty(t, created.CorrelationID)

	list, ok := d.Cached(context.Background(), "cust")
	require.True(t, ok)
	require.Len(t, list, 1, "confirmation must replace the optimistic row, not append")
	require.Equal(t, serverID, list[0].ServerID)
}

func TestCreate_BackendFailureKeepsUnsavedEntry(t *testing.T) {
	b := &fakeBackend{createErr: errors.New("backend down")}
	d := newDirectory(b)

	pending, err := d.Create(context.Background(), "sess", "cust", address.Address{
		RecipientName: "Asha",
		Line1:         "12 MG Road",
		Pincode:       "560001",
	})
	require.Error(t, err)
	require.False(t, pending.Saved())

	list, ok := d.Cached(context.Background(), "cust")
	require.True(t, ok)
	require.Len(t, list, 1)
	require.False(t, list[0].Saved(), "entry stays local-only until a create succeeds")
}

func TestList_ServesCacheWhenBackendFails(t *testing.T) {
	b := &fakeBackend{listResp: []backend.Address{{ID: serverID, Name: "A", Pincode: "110001"}}}
	d := newDirectory(b)

	_, err := d.List(context.Background(), "sess", "cust")
	require.NoError(t, err)

	b.listErr = errors.New("backend down")
	list, err := d.List(context.Background(), "sess", "cust")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSaved_ServerIDConvention(t *testing.T) {
	require.True(t, address.Address{ServerID: serverID}.Saved())
	require.False(t, address.Address{ServerID: ""}.Saved())
	require.False(t, address.Address{ServerID: "short"}.Saved())
	require.False(t, address.Address{ServerID: "zz" + serverID[2:]}.Saved())
}
