package storefront

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"StoreFront/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Metrics  *kit.Metrics
	Registry *prometheus.Registry

	CORSOrigins []string

	MetricsEnabled bool
	MetricsToken   string
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	if deps.MetricsEnabled && deps.Registry != nil {
		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.handleReady)

	if s.LoginLimiter != nil {
		r.With(s.LoginLimiter.IPMiddleware).Post("/session/login", s.handleLogin)
	} else {
		r.Post("/session/login", s.handleLogin)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(s.RequireSession)

		pr.Post("/session/logout", s.handleLogout)

		pr.Get("/cart", s.handleCart)
		pr.Get("/cart/count", s.handleCartCount)

		pr.Get("/addresses", s.handleListAddresses)
		pr.Post("/addresses", s.handleCreateAddress)

		pr.Get("/geo/countries", s.handleCountries)
		pr.Get("/geo/states", s.handleStates)
		pr.Get("/geo/cities", s.handleCities)

		pr.Get("/serviceability/{pincode}", s.handleServiceability)
		pr.Get("/delivery-charge/{pincode}", s.handleDeliveryCharge)

		pr.Put("/checkout/address", s.handleSelectAddress)
		pr.Post("/checkout", s.handleCheckout)
		pr.Post("/checkout/payment", s.handlePaymentCallback)

		pr.Get("/favourites", s.handleFavouritesList)
		pr.Get("/favourites/{productID}", s.handleFavouriteStatus)
		pr.Post("/favourites/{productID}/toggle", s.handleFavouriteToggle)
	})

	return r
}

type ctxKey string

const sessionKey ctxKey = "storefront_session"

type sessionInfo struct {
	ID         string
	CustomerID string
}

func sessionFromContext(ctx context.Context) (sessionInfo, bool) {
	si, ok := ctx.Value(sessionKey).(sessionInfo)
	return si, ok
}

// RequireSession resolves the bearer session ID to a stored session. Token
// expiry is not rejected here: the backend wrapper refreshes transparently
// on the first 401.
func (s *Server) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			kit.WriteError(w, r, http.StatusUnauthorized, "missing session", nil)
			return
		}

		id := strings.TrimPrefix(authz, "Bearer ")
		sess, ok, err := s.Sessions.Get(r.Context(), id)
		if err != nil || !ok {
			kit.WriteError(w, r, http.StatusUnauthorized, "invalid session", nil)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sessionInfo{
			ID:         sess.ID,
			CustomerID: sess.CustomerID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	if err := s.SessionStore.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}
