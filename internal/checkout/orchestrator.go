// Package checkout sequences order creation and payment verification. The
// submission path is the single most safety-critical operation in the
// storefront; everything here is arranged so a double trigger cannot create
// a second in-flight submission from this process.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"StoreFront/internal/address"
	"StoreFront/internal/backend"
	"StoreFront/internal/cart"
	"StoreFront/internal/payment"
)

type Status string

const (
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusSucceeded       Status = "succeeded"
	StatusFailed          Status = "failed"
)

type Result struct {
	Status      Status                `json:"status"`
	OrderID     string                `json:"orderId,omitempty"`
	OrderNumber int64                 `json:"orderNumber,omitempty"`
	Total       int64                 `json:"total,omitempty"`
	Payment     *backend.PaymentOrder `json:"payment,omitempty"`
	Reason      string                `json:"reason,omitempty"`
}

var (
	ErrInProgress     = errors.New("checkout already in progress")
	ErrNotSignedIn    = errors.New("not signed in")
	ErrNoAddress      = errors.New("no delivery address selected")
	ErrNotServiceable = errors.New("delivery address not serviceable")
	ErrUnsavedAddress = errors.New("delivery address must be saved first")
	ErrUnsavedBilling = errors.New("billing address must be saved first")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrBadItem        = errors.New("bad cart line")
	ErrOrderRejected  = errors.New("order rejected")
	ErrUnknownPayment = errors.New("unknown gateway order")
)

type Backend interface {
	CreateOrder(ctx context.Context, sessionID string, req backend.OrderCreateRequest) (backend.OrderCreateResponse, error)
	VerifyPayment(ctx context.Context, sessionID string, req backend.VerifyPaymentRequest) (backend.VerifyPaymentResponse, error)
}

type SubmitRequest struct {
	CustomerID string
	Delivery   address.Address
	Billing    *address.Address // nil when billing follows delivery
	Items      []cart.Item
}

type pendingOrder struct {
	OrderID     string
	OrderNumber int64
	Total       int64
}

type Orchestrator struct {
	backend Backend
	svc     Serviceability
	log     *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
	pending  map[string]pendingOrder // keyed by gateway order ID
}

func NewOrchestrator(b Backend, svc Serviceability, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		backend:  b,
		svc:      svc,
		log:      log,
		inFlight: map[string]bool{},
		pending:  map[string]pendingOrder{},
	}
}

// tryLock acquires the per-customer re-entrancy lock. It is taken before any
// network work begins and released on every exit path of Submit.
func (o *Orchestrator) tryLock(customerID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[customerID] {
		return false
	}
	o.inFlight[customerID] = true
	return true
}

func (o *Orchestrator) unlock(customerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, customerID)
}

// Submit validates preconditions, creates the order, and branches on whether
// the backend demands payment collection. A second Submit for the same
// customer while one is in flight returns ErrInProgress without any network
// call. The lock cannot dedupe across processes; the idempotency key on the
// create request is what protects the backend there.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, req SubmitRequest) (Result, error) {
	if req.CustomerID == "" {
		return Result{}, ErrNotSignedIn
	}

	if !o.tryLock(req.CustomerID) {
		return Result{}, ErrInProgress
	}
	defer o.unlock(req.CustomerID)

	subtotal, err := o.validate(req)
	if err != nil {
		return Result{}, err
	}

	charge, _ := o.svc.CachedCharge(req.Delivery.Pincode)

	billingID := req.Delivery.ServerID
	if req.Billing != nil {
		billingID = req.Billing.ServerID
	}

	createReq := backend.OrderCreateRequest{
		CustomerID:        req.CustomerID,
		DeliveryAddressID: req.Delivery.ServerID,
		BillingAddressID:  billingID,
		IdempotencyKey:    uuid.NewString(),
		Items:             orderItems(req.Items),
	}

	resp, err := o.backend.CreateOrder(ctx, sessionID, createReq)
	if err != nil {
		o.log.Warn("order create failed",
			zap.String("customer_id", req.CustomerID), zap.Error(err))
		return Result{Status: StatusFailed, Reason: err.Error()}, fmt.Errorf("create order: %w", err)
	}

	total := subtotal + charge

	if resp.Payment != nil {
		o.mu.Lock()
		o.pending[resp.Payment.GatewayOrderID] = pendingOrder{
			OrderID:     resp.OrderID,
			OrderNumber: resp.OrderNumber,
			Total:       total,
		}
		o.mu.Unlock()

		return Result{
			Status:      StatusAwaitingPayment,
			OrderID:     resp.OrderID,
			OrderNumber: resp.OrderNumber,
			Total:       total,
			Payment:     resp.Payment,
		}, nil
	}

	if !resp.Success {
		return Result{
			Status:  StatusFailed,
			OrderID: resp.OrderID,
			Reason:  "order not accepted",
		}, ErrOrderRejected
	}

	return Result{
		Status:      StatusSucceeded,
		OrderID:     resp.OrderID,
		OrderNumber: resp.OrderNumber,
		Total:       total,
	}, nil
}

// validate applies the hard-stop preconditions. None of these touch the
// network; serviceability is judged from already-resolved lookups only.
func (o *Orchestrator) validate(req SubmitRequest) (int64, error) {
	if req.Delivery.LocalID == "" && req.Delivery.ServerID == "" {
		return 0, ErrNoAddress
	}
	if prepaid, resolved := o.svc.CachedPrepaid(req.Delivery.Pincode); resolved && !prepaid {
		return 0, ErrNotServiceable
	}
	if !req.Delivery.Saved() {
		return 0, ErrUnsavedAddress
	}
	if req.Billing != nil && !req.Billing.Saved() {
		return 0, ErrUnsavedBilling
	}
	if len(req.Items) == 0 {
		return 0, ErrEmptyCart
	}

	var subtotal int64
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return 0, ErrBadItem
		}
		subtotal += it.UnitPrice * int64(it.Quantity)
	}
	return subtotal, nil
}

func orderItems(items []cart.Item) []backend.OrderItem {
	out := make([]backend.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, backend.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return out
}

// pendingWait bounds how long a callback waits for its gateway order to be
// registered. The widget can post its callback while the submit response is
// still in flight; without the wait that race surfaces as a spurious
// unknown-order failure.
const (
	pendingWait = 2 * time.Second
	pendingTick = 50 * time.Millisecond
)

func (o *Orchestrator) awaitPending(ctx context.Context, gatewayOrderID string) (pendingOrder, bool) {
	deadline := time.Now().Add(pendingWait)
	for {
		o.mu.Lock()
		p, ok := o.pending[gatewayOrderID]
		o.mu.Unlock()
		if ok || time.Now().After(deadline) {
			return p, ok
		}

		select {
		case <-ctx.Done():
			return pendingOrder{}, false
		case <-time.After(pendingTick):
		}
	}
}

// CompletePayment resolves an awaiting-payment order from the widget's
// callback. Verification first includes the internal order ID; if the
// backend rejects specifically because it cannot locate the order by that
// ID, verification is retried once without it and the second response is
// authoritative.
func (o *Orchestrator) CompletePayment(ctx context.Context, sessionID string, cb payment.Callback) (Result, error) {
	if cb.Failure != "" {
		o.mu.Lock()
		p := o.pending[cb.OrderID]
		o.mu.Unlock()
		return Result{
			Status:  StatusFailed,
			OrderID: p.OrderID,
			Reason:  cb.Failure,
		}, nil
	}

	p, known := o.awaitPending(ctx, cb.OrderID)
	if !known {
		return Result{}, ErrUnknownPayment
	}

	vreq := backend.VerifyPaymentRequest{
		GatewayPaymentID: cb.PaymentID,
		GatewayOrderID:   cb.OrderID,
		GatewaySignature: cb.Signature,
		OrderID:          p.OrderID,
	}

	resp, err := o.backend.VerifyPayment(ctx, sessionID, vreq)
	if err != nil {
		return Result{Status: StatusFailed, OrderID: p.OrderID, Reason: err.Error()},
			fmt.Errorf("verify payment: %w", err)
	}

	if !resp.Verified && resp.Reason == backend.ReasonOrderNotFound && vreq.OrderID != "" {
		// Known backend quirk: it may fail to match our order ID even though
		// the gateway identifiers are good. Retry once on gateway IDs alone.
		vreq.OrderID = ""
		resp, err = o.backend.VerifyPayment(ctx, sessionID, vreq)
		if err != nil {
			return Result{Status: StatusFailed, OrderID: p.OrderID, Reason: err.Error()},
				fmt.Errorf("verify payment retry: %w", err)
		}
	}

	if !resp.Verified {
		return Result{
			Status:  StatusFailed,
			OrderID: p.OrderID,
			Reason:  resp.Reason,
		}, nil
	}

	o.mu.Lock()
	delete(o.pending, cb.OrderID)
	o.mu.Unlock()

	return Result{
		Status:      StatusSucceeded,
		OrderID:     p.OrderID,
		OrderNumber: p.OrderNumber,
		Total:       p.Total,
	}, nil
}
