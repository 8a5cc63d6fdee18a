package storefront

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StoreFront/internal/address"
	"StoreFront/internal/backend"
	"StoreFront/internal/cart"
	"StoreFront/internal/checkout"
	"StoreFront/internal/favourites"
	"StoreFront/internal/payment"
	"StoreFront/internal/serviceability"
	"StoreFront/internal/session"
	"StoreFront/pkg/kit"
)

type Server struct {
	Log          *zap.Logger
	Sessions     *session.Manager
	SessionStore session.Store
	Auth         *backend.AuthClient
	Backend      *backend.Client
	Addresses    *address.Directory
	Geo          *address.Geo
	Svc          *serviceability.Lookup
	Cart         *cart.Loader
	Selection    *checkout.Selection
	Checkout     *checkout.Orchestrator
	Favourites   *favourites.Cache

	PaymentSecret   string
	CheckoutLimiter *kit.KeyRateLimiter
	LoginLimiter    *kit.KeyRateLimiter
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return
	}

	grant, err := s.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}

	sess, err := s.Sessions.Login(r.Context(), grant)
	if err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, http.StatusOK, map[string]string{
		"sessionId":  sess.ID,
		"customerId": sess.CustomerID,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	// Best effort upstream; the local session dies either way.
	if err := s.Backend.Logout(r.Context(), si.ID); err != nil {
		s.Log.Warn("backend logout failed", zap.Error(err))
	}
	if err := s.Sessions.Logout(r.Context(), si.ID); err != nil {
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	snap, err := s.Cart.Load(r.Context(), si.ID, si.CustomerID)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCartCount(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	n, ok := s.Cart.CachedCount(r.Context(), si.CustomerID)
	kit.WriteJSON(w, http.StatusOK, map[string]any{"count": n, "known": ok})
}

func (s *Server) handleListAddresses(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	list, err := s.Addresses.List(r.Context(), si.ID, si.CustomerID)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}

	resp := map[string]any{"addresses": list}
	if def, ok := address.Default(list); ok {
		resp["default"] = def.LocalID
	}
	if sel, ok := s.Selection.Selected(si.CustomerID); ok {
		resp["selected"] = sel.LocalID
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	var draft address.Address
	if err := kit.DecodeJSON(w, r, &draft); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if draft.RecipientName == "" || draft.Line1 == "" || draft.Pincode == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "name, line1 and pincode required", nil)
		return
	}

	created, err := s.Addresses.Create(r.Context(), si.ID, si.CustomerID, draft)
	if err != nil {
		// The optimistic record is kept locally; tell the caller it is
		// pending rather than losing the input.
		kit.WriteError(w, r, http.StatusBadGateway, "address not saved", map[string]any{
			"pending": created,
		})
		return
	}
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())
	list, err := s.Geo.Countries(r.Context(), si.ID)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"countries": list})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())
	list, err := s.Geo.States(r.Context(), si.ID, r.URL.Query().Get("countryId"))
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"states": list})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())
	list, err := s.Geo.Cities(r.Context(), si.ID, r.URL.Query().Get("stateId"))
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"cities": list})
}

func (s *Server) handleServiceability(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	prepaid, err := s.Svc.Prepaid(r.Context(), si.ID, chi.URLParam(r, "pincode"))
	if errors.Is(err, serviceability.ErrInvalidPincode) {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid pincode", nil)
		return
	}
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]bool{"prepaid": prepaid})
}

func (s *Server) handleDeliveryCharge(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	charge, err := s.Svc.Charge(r.Context(), si.ID, chi.URLParam(r, "pincode"))
	if errors.Is(err, serviceability.ErrInvalidPincode) {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid pincode", nil)
		return
	}
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]int64{"charge": charge})
}

type selectAddressReq struct {
	LocalID string `json:"localId"`
}

func (s *Server) handleSelectAddress(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	var req selectAddressReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	list, ok := s.Addresses.Cached(r.Context(), si.CustomerID)
	if !ok {
		var err error
		if list, err = s.Addresses.List(r.Context(), si.ID, si.CustomerID); err != nil {
			s.writeBackendError(w, r, err)
			return
		}
	}

	var chosen *address.Address
	for i := range list {
		if list[i].LocalID == req.LocalID {
			chosen = &list[i]
			break
		}
	}
	if chosen == nil {
		kit.WriteError(w, r, http.StatusNotFound, "unknown address", nil)
		return
	}

	effective, selected, err := s.Selection.Select(r.Context(), si.ID, si.CustomerID, *chosen, list)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	if !selected {
		kit.WriteJSON(w, http.StatusOK, map[string]any{
			"selected": nil,
			"reason":   "no serviceable address",
		})
		return
	}

	resp := map[string]any{"selected": effective}
	if effective.LocalID != req.LocalID {
		resp["reason"] = "chosen address not serviceable, fell back"
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

type checkoutReq struct {
	BillingLocalID string `json:"billingLocalId,omitempty"`
}

type checkoutResp struct {
	checkout.Result
	Redirect string `json:"redirect,omitempty"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	if s.CheckoutLimiter != nil && !s.CheckoutLimiter.Allow(si.CustomerID) {
		kit.WriteError(w, r, http.StatusTooManyRequests, "too many checkout attempts", nil)
		return
	}

	var req checkoutReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	delivery, ok := s.Selection.Selected(si.CustomerID)
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "no delivery address selected", nil)
		return
	}

	var billing *address.Address
	if req.BillingLocalID != "" && req.BillingLocalID != delivery.LocalID {
		list, _ := s.Addresses.Cached(r.Context(), si.CustomerID)
		for i := range list {
			if list[i].LocalID == req.BillingLocalID {
				billing = &list[i]
				break
			}
		}
		if billing == nil {
			kit.WriteError(w, r, http.StatusNotFound, "unknown billing address", nil)
			return
		}
	}

	snap, err := s.Cart.Load(r.Context(), si.ID, si.CustomerID)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}

	result, err := s.Checkout.Submit(r.Context(), si.ID, checkout.SubmitRequest{
		CustomerID: si.CustomerID,
		Delivery:   delivery,
		Billing:    billing,
		Items:      snap.Items,
	})
	if err != nil && result.Status == "" {
		s.writeCheckoutError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, withRedirect(result))
}

func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	var cb payment.Callback
	if err := kit.DecodeJSON(w, r, &cb); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	if cb.Failure == "" && !payment.VerifySignature(s.PaymentSecret, cb) {
		kit.WriteError(w, r, http.StatusBadRequest, "bad payment signature", nil)
		return
	}

	result, err := s.Checkout.CompletePayment(r.Context(), si.ID, cb)
	if err != nil && result.Status == "" {
		s.writeCheckoutError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, withRedirect(result))
}

// withRedirect encodes the result view the UI should navigate to, total and
// order reference included for the success and support paths.
func withRedirect(res checkout.Result) checkoutResp {
	out := checkoutResp{Result: res}

	switch res.Status {
	case checkout.StatusSucceeded:
		q := url.Values{
			"order": {res.OrderID},
			"total": {strconv.FormatInt(res.Total, 10)},
		}
		out.Redirect = "/checkout/success?" + q.Encode()
	case checkout.StatusFailed:
		q := url.Values{"reason": {res.Reason}}
		if res.OrderID != "" {
			q.Set("order", res.OrderID)
		}
		out.Redirect = "/checkout/failure?" + q.Encode()
	}
	return out
}

func (s *Server) handleFavouritesList(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	if err := s.Favourites.Refresh(r.Context(), si.ID, si.CustomerID); err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"favourites": s.Favourites.List(si.CustomerID),
	})
}

func (s *Server) handleFavouriteStatus(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	kit.WriteJSON(w, http.StatusOK, map[string]bool{
		"favourite": s.Favourites.IsFavourite(si.CustomerID, chi.URLParam(r, "productID")),
	})
}

func (s *Server) handleFavouriteToggle(w http.ResponseWriter, r *http.Request) {
	si, _ := sessionFromContext(r.Context())

	productID := chi.URLParam(r, "productID")
	if err := s.Favourites.Toggle(r.Context(), si.ID, si.CustomerID, productID); err != nil {
		if errors.Is(err, favourites.ErrNotAuthenticated) {
			kit.WriteError(w, r, http.StatusUnauthorized, "sign in required", nil)
			return
		}
		s.writeBackendError(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, map[string]bool{
		"favourite": s.Favourites.IsFavourite(si.CustomerID, productID),
	})
}

func (s *Server) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, checkout.ErrInProgress):
		kit.WriteError(w, r, http.StatusConflict, "checkout already in progress", nil)
	case errors.Is(err, checkout.ErrNotSignedIn):
		kit.WriteError(w, r, http.StatusUnauthorized, "sign in required", nil)
	case errors.Is(err, checkout.ErrNoAddress):
		kit.WriteError(w, r, http.StatusBadRequest, "no delivery address selected", nil)
	case errors.Is(err, checkout.ErrNotServiceable):
		kit.WriteError(w, r, http.StatusBadRequest, "delivery address not serviceable", nil)
	case errors.Is(err, checkout.ErrUnsavedAddress):
		kit.WriteError(w, r, http.StatusBadRequest, "save the delivery address first", nil)
	case errors.Is(err, checkout.ErrUnsavedBilling):
		kit.WriteError(w, r, http.StatusBadRequest, "save the billing address first", nil)
	case errors.Is(err, checkout.ErrEmptyCart):
		kit.WriteError(w, r, http.StatusBadRequest, "cart is empty", nil)
	case errors.Is(err, checkout.ErrBadItem):
		kit.WriteError(w, r, http.StatusBadRequest, "bad cart line", nil)
	case errors.Is(err, checkout.ErrUnknownPayment):
		kit.WriteError(w, r, http.StatusNotFound, "unknown gateway order", nil)
	default:
		s.writeBackendError(w, r, err)
	}
}

func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadGateway
		if apiErr.Status == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		kit.WriteError(w, r, status, apiErr.Message, nil)
		return
	}

	s.Log.Error("backend call failed", zap.Error(err))
	kit.WriteError(w, r, http.StatusBadGateway, fmt.Sprintf("backend unavailable: %v", err), nil)
}
