package checkout_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"StoreFront/internal/address"
	"StoreFront/internal/backend"
	"StoreFront/internal/cart"
	"StoreFront/internal/checkout"
	"StoreFront/internal/payment"
	"StoreFront/internal/serviceability"
)

const savedID = "64a1b2c3d4e5f6a7b8c9d0e1"

type fakeSvc struct {
	prepaid map[string]bool // resolved answers; absent = unresolved
	charge  map[string]int64
}

func (f *fakeSvc) Prepaid(_ context.Context, _, pin string) (bool, error) {
	if !serviceability.ValidPincode(pin) {
		return false, serviceability.ErrInvalidPincode
	}
	return f.prepaid[pin], nil
}

func (f *fakeSvc) Charge(_ context.Context, _, pin string) (int64, error) {
	return f.charge[pin], nil
}

func (f *fakeSvc) CachedPrepaid(pin string) (bool, bool) {
	v, ok := f.prepaid[pin]
	return v, ok
}

func (f *fakeSvc) CachedCharge(pin string) (int64, bool) {
	v, ok := f.charge[pin]
	return v, ok
}

type fakeBackend struct {
	createCalls int32
	createResp  backend.OrderCreateResponse
	createErr   error
	createGate  chan struct{} // when set, CreateOrder blocks until closed

	verifyCalls int32
	verifyFn    func(req backend.VerifyPaymentRequest) backend.VerifyPaymentResponse
	verifyReqs  []backend.VerifyPaymentRequest
}

func (f *fakeBackend) CreateOrder(_ context.Context, _ string, _ backend.OrderCreateRequest) (backend.OrderCreateResponse, error) {
	atomic.AddInt32(&f.createCalls, 1)
	if f.createGate != nil {
		<-f.createGate
	}
	return f.createResp, f.createErr
}

func (f *fakeBackend) VerifyPayment(_ context.Context, _ string, req backend.VerifyPaymentRequest) (backend.VerifyPaymentResponse, error) {
	atomic.AddInt32(&f.verifyCalls, 1)
	f.verifyReqs = append(f.verifyReqs, req)
	return f.verifyFn(req), nil
}

func savedAddress(pin string) address.Address {
	return address.Address{
		LocalID:  "loc_" + savedID,
		ServerID: savedID,
		Pincode:  pin,
	}
}

func twoItemCart() []cart.Item {
	return []cart.Item{
		{ProductID: "p1", Title: "Tea", UnitPrice: 500, Quantity: 1},
		{ProductID: "p2", Title: "Mugs", UnitPrice: 300, Quantity: 1},
	}
}

func TestSubmit_DirectSuccessTotalsSubtotalPlusCachedCharge(t *testing.T) {
	b := &fakeBackend{createResp: backend.OrderCreateResponse{
		OrderID:     savedID,
		OrderNumber: 1042,
		Success:     true,
	}}
	svc := &fakeSvc{
		prepaid: map[string]bool{"560001": true},
		charge:  map[string]int64{"560001": 40},
	}
	o := checkout.NewOrchestrator(b, svc, zap.NewNop())

	res, err := o.Submit(context.Background(), "sess", checkout.SubmitRequest{
		CustomerID: "cust",
		Delivery:   savedAddress("560001"),
		Items:      twoItemCart(),
	})
	require.NoError(t, err)
	require.Equal(t, checkout.StatusSucceeded, res.Status)
	require.EqualValues(t, 840, res.Total, "subtotal 800 plus cached delivery charge 40")
	require.EqualValues(t, 1042, res.OrderNumber)
}

func TestSubmit_SecondInvocationIsNoOpWhileLocked(t *testing.T) {
	gate := make(chan struct{})
	b := &fakeBackend{
		createResp: backend.OrderCreateResponse{OrderID: savedID, Success: true},
		createGate: gate,
	}
	svc := &fakeSvc{prepaid: map[string]bool{"560001": true}, charge: map[string]int64{}}
	o := checkout.NewOrchestrator(b, svc, zap.NewNop())

	req := checkout.SubmitRequest{
		CustomerID: "cust",
		Delivery:   savedAddress("560001"),
		Items:      twoItemCart(),
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := o.Submit(context.Background(), "sess", req)
		done <- err
	}()
	<-started

	// Wait until the first submission is inside CreateOrder.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&b.createCalls) == 1
	}, testWait, testTick)

	_, err := o.Submit(context.Background(), "sess", req)
	require.ErrorIs(t, err, checkout.ErrInProgress)
	require.EqualValues(t, 1, atomic.LoadInt32(&b.createCalls), "double trigger must not reach the backend")

	close(gate)
	require.NoError(t, <-done)

	// Lock released on completion: a later attempt goes through.
	_, err = o.Submit(context.Background(), "sess", req)
	require.NoError(t, err)
}

func TestSubmit_UnsavedAddressBlocksAndReleasesLock(t *testing.T) {
	b := &fakeBackend{createResp: backend.OrderCreateResponse{OrderID: savedID, Success: true}}
	svc := &fakeSvc{prepaid: map[string]bool{"560001": true}, charge: map[string]int64{}}
	o := checkout.NewOrchestrator(b, svc, zap.NewNop())

	unsaved := address.Address{LocalID: "loc_tmp", Pincode: "560001"}
	_, err := o.Submit(context.Background(), "sess", checkout.SubmitRequest{
		CustomerID: "cust",
		Delivery:   unsaved,
		Items:      twoItemCart(),
	})
	require.ErrorIs(t, err, checkout.ErrUnsavedAddress)
	require.Zero(t, atomic.LoadInt32(&b.createCalls), "an unsaved address never reaches order creation")

	_, err = o.Submit(context.Background(), "sess", checkout.SubmitRequest{
		CustomerID: "cust",
		Delivery:   savedAddress("560001"),
		Items:      twoItemCart(),
	})
	require.NoError(t, err, "lock must be free after a validation failure")
}

func TestSubmit_Preconditions(t *testing.T) {
	b := &fakeBackend{}
	svc := &fakeSvc{prepaid: map[string]bool{"110001": false}, charge: map[string]int64{}}
	o := checkout.NewOrchestrator(b, svc, zap.NewNop())

	cases := []struct {
		name string
		req  checkout.SubmitRequest
		want error
	}{
		{"no customer", checkout.SubmitRequest{}, checkout.ErrNotSignedIn},
		{"no address", checkout.SubmitRequest{CustomerID: "c"}, checkout.ErrNoAddress},
		{"non-serviceable", checkout.SubmitRequest{
			CustomerID: "c", Delivery: savedAddress("110001"), Items: twoItemCart(),
		}, checkout.ErrNotServiceable},
		{"unsaved billing", checkout.SubmitRequest{
			CustomerID: "c", Delivery: savedAddress("560001"),
			Billing: &address.Address{LocalID: "loc_b"}, Items: twoItemCart(),
		}, checkout.ErrUnsavedBilling},
		{"empty cart", checkout.SubmitRequest{
			CustomerID: "c", Delivery: savedAddress("560001"),
		}, checkout.ErrEmptyCart},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := o.Submit(context.Background(), "sess", tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}
	require.Zero(t, atomic.LoadInt32(&b.createCalls))
}

func TestCompletePayment_RetriesWithoutOrderIDOnOrderNotFound(t *testing.T) {
	b := &fakeBackend{
		createResp: backend.OrderCreateResponse{
			OrderID:     savedID,
			OrderNumber: 1042,
			Payment: &backend.PaymentOrder{
				GatewayOrderID: "gw_order_1",
				Key:            "key_abc",
				Amount:         840,
				Currency:       "INR",
			},
		},
		verifyFn: func(req backend.VerifyPaymentRequest) backend.VerifyPaymentResponse {
			if req.OrderID != "" {
				return backend.VerifyPaymentResponse{Verified: false, Reason: backend.ReasonOrderNotFound}
			}
			return backend.VerifyPaymentResponse{Verified: true}
		},
	}
	svc := &fakeSvc{prepaid: map[string]bool{"560001": true}, charge: map[string]int64{"560001": 40}}
	o := checkout.NewOrchestrator(b, svc, zap.NewNop())

	res, err := o.Submit(context.Background(), "sess", checkout.SubmitRequest{
		CustomerID: "cust",
		Delivery:   savedAddress("560001"),
		Items:      twoItemCart(),
	})
	require.NoError(t, err)
	require.Equal(t, checkout.StatusAwaitingPayment, res.Status)
	require.NotNil(t, res.Payment)

	final, err := o.CompletePayment(context.Background(), "sess", payment.Callback{
		PaymentID: "gw_pay_1",
		OrderID:   "gw_order_1",
		Signature: "sig",
	})
	require.NoError(t, err)
	require.Equal(t, checkout.StatusSucceeded, final.Status)
	require.EqualValues(t, 840, final.Total)

	require.EqualValues(t, 2, atomic.LoadInt32(&b.verifyCalls))
	require.Equal(t, savedID, b.verifyReqs[0].OrderID, "first attempt includes the internal order ID")
	require.Empty(t, b.verifyReqs[1].OrderID, "retry relies on gateway identifiers alone")
}

func TestCompletePayment_WaitsForLateOrderRegistration(t *testing.T) {
	gate := make(chan struct{})
	b := &fakeBackend{
		createResp: backend.OrderCreateResponse{
			OrderID: savedID,
			Payment: &backend.PaymentOrder{GatewayOrderID: "gw_order_3", Key: "k"},
		},
		createGate: gate,
		verifyFn: func(backend.VerifyPaymentRequest) backend.VerifyPaymentResponse {
			return backend.VerifyPaymentResponse{Verified: true}
		},
	}
	svc := &fakeSvc{prepaid: map[string]bool{"560001": true}, charge: map[string]int64{}}
	o := checkout.NewOrchestrator(b, svc, zap.NewNop())

	// Submit is still blocked in CreateOrder when the callback arrives.
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(gate)
	}()
	go func() {
		_, _ = o.Submit(context.Background(), "sess", checkout.SubmitRequest{
			CustomerID: "cust",
			Delivery:   savedAddress("560001"),
			Items:      twoItemCart(),
		})
	}()

	res, err := o.CompletePayment(context.Background(), "sess", payment.Callback{
		PaymentID: "gw_pay_3",
		OrderID:   "gw_order_3",
		Signature: "sig",
	})
	require.NoError(t, err)
	require.Equal(t, checkout.StatusSucceeded, res.Status)
	require.Equal(t, savedID, res.OrderID)
}

func TestCompletePayment_RejectionRoutesToFailure(t *testing.T) {
	b := &fakeBackend{
		createResp: backend.OrderCreateResponse{
			OrderID: savedID,
			Payment: &backend.PaymentOrder{GatewayOrderID: "gw_order_2", Key: "k"},
		},
		verifyFn: func(backend.VerifyPaymentRequest) backend.VerifyPaymentResponse {
			return backend.VerifyPaymentResponse{Verified: false, Reason: "signature mismatch"}
		},
	}
	svc := &fakeSvc{prepaid: map[string]bool{"560001": true}, charge: map[string]int64{}}
	o := checkout.NewOrchestrator(b, svc, zap.NewNop())

	_, err := o.Submit(context.Background(), "sess", checkout.SubmitRequest{
		CustomerID: "cust",
		Delivery:   savedAddress("560001"),
		Items:      twoItemCart(),
	})
	require.NoError(t, err)

	res, err := o.CompletePayment(context.Background(), "sess", payment.Callback{
		PaymentID: "gw_pay_2",
		OrderID:   "gw_order_2",
		Signature: "sig",
	})
	require.NoError(t, err)
	require.Equal(t, checkout.StatusFailed, res.Status)
	require.Equal(t, "signature mismatch", res.Reason)
	require.Equal(t, savedID, res.OrderID, "order reference kept for support follow-up")
	require.EqualValues(t, 1, atomic.LoadInt32(&b.verifyCalls), "no retry for reasons other than order_not_found")
}
