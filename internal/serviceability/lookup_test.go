package serviceability_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"StoreFront/internal/serviceability"
)

type fakeBackend struct {
	svcCalls    int32
	chargeCalls int32
	prepaid     bool
	charge      int64
	err         error
	delay       time.Duration
}

func (f *fakeBackend) PincodeServiceability(context.Context, string, string) (bool, error) {
	atomic.AddInt32(&f.svcCalls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.prepaid, f.err
}

func (f *fakeBackend) DeliveryCharge(context.Context, string, string) (int64, error) {
	atomic.AddInt32(&f.chargeCalls, 1)
	return f.charge, f.err
}

func TestInvalidPincode_NoNetworkCall(t *testing.T) {
	b := &fakeBackend{}
	l := serviceability.NewLookup(b)

	for _, pin := range []string{"", "12345", "1234567", "012345", "abc123", "12345x"} {
		_, err := l.Prepaid(context.Background(), "sess", pin)
		require.ErrorIs(t, err, serviceability.ErrInvalidPincode, "pin %q", pin)

		_, err = l.Charge(context.Background(), "sess", pin)
		require.ErrorIs(t, err, serviceability.ErrInvalidPincode, "pin %q", pin)
	}

	require.Zero(t, atomic.LoadInt32(&b.svcCalls))
	require.Zero(t, atomic.LoadInt32(&b.chargeCalls))
}

func TestConcurrentLookups_SingleCallPerPincode(t *testing.T) {
	b := &fakeBackend{prepaid: true, delay: 100 * time.Millisecond}
	l := serviceability.NewLookup(b)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prepaid, err := l.Prepaid(context.Background(), "sess", "560001")
			require.NoError(t, err)
			require.True(t, prepaid)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&b.svcCalls), "in-flight lookup must be joined, not duplicated")
}

func TestResolvedEntryNeverRequeried(t *testing.T) {
	b := &fakeBackend{prepaid: false}
	l := serviceability.NewLookup(b)

	for range 3 {
		prepaid, err := l.Prepaid(context.Background(), "sess", "110001")
		require.NoError(t, err)
		require.False(t, prepaid)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&b.svcCalls))
}

func TestResolvedErrorIsCachedToo(t *testing.T) {
	b := &fakeBackend{err: errors.New("carrier timeout")}
	l := serviceability.NewLookup(b)

	_, err1 := l.Charge(context.Background(), "sess", "400001")
	require.Error(t, err1)

	_, err2 := l.Charge(context.Background(), "sess", "400001")
	require.Error(t, err2)
	require.EqualValues(t, 1, atomic.LoadInt32(&b.chargeCalls), "a resolved error is cached, not retried")

	_, ok := l.CachedCharge("400001")
	require.False(t, ok, "errored entries do not surface as cached values")
}

func TestCachedCharge(t *testing.T) {
	b := &fakeBackend{charge: 40}
	l := serviceability.NewLookup(b)

	_, ok := l.CachedCharge("560001")
	require.False(t, ok, "nothing cached before a lookup")

	charge, err := l.Charge(context.Background(), "sess", "560001")
	require.NoError(t, err)
	require.EqualValues(t, 40, charge)

	cached, ok := l.CachedCharge("560001")
	require.True(t, ok)
	require.EqualValues(t, 40, cached)
}
