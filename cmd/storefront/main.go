package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"StoreFront/internal/address"
	"StoreFront/internal/backend"
	"StoreFront/internal/cart"
	"StoreFront/internal/checkout"
	"StoreFront/internal/config"
	"StoreFront/internal/db"
	"StoreFront/internal/favourites"
	"StoreFront/internal/migrate"
	"StoreFront/internal/serviceability"
	"StoreFront/internal/session"
	"StoreFront/internal/storefront"
	"StoreFront/pkg/kit"
)

func main() {
	cfg := config.FromEnv()

	log := kit.NewLogger("storefront", cfg.Env)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("bad config", zap.Error(err))
	}

	ctx := context.Background()

	sessionStore := session.NewStore()
	addressCache := address.NewCacheStore()
	countStore := cart.NewCountStore()

	if cfg.DBConnString != "" {
		pool, err := db.Connect(ctx, cfg.DBConnString)
		if err != nil {
			log.Fatal("db connect failed", zap.Error(err))
		}
		defer pool.Close()

		if err := migrate.Apply(ctx, pool); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}

		sessionStore = session.NewPostgresStore(pool)
		addressCache = address.NewPostgresCacheStore(pool)
		countStore = cart.NewPostgresCountStore(pool)
	}

	auth := backend.NewAuthClient(cfg.BackendURL, cfg.BackendTimeout)
	sessions := session.NewManager(sessionStore, auth, log)
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, sessions, log)

	reg := prometheus.NewRegistry()
	metrics := kit.NewMetrics(reg)
	client.Count = metrics.CountUpstream

	svc := serviceability.NewLookup(client)

	favs := favourites.New(client, log)
	favs.Start(sessions)
	defer favs.Close()

	s := &storefront.Server{
		Log:          log,
		Sessions:     sessions,
		SessionStore: sessionStore,
		Auth:         auth,
		Backend:      client,
		Addresses:    address.NewDirectory(client, addressCache, log),
		Geo:          address.NewGeo(client),
		Svc:          svc,
		Cart:         cart.NewLoader(client, countStore, log),
		Selection:    checkout.NewSelection(svc),
		Checkout:     checkout.NewOrchestrator(client, svc, log),
		Favourites:   favs,

		PaymentSecret:   cfg.PaymentKeySecret,
		CheckoutLimiter: kit.NewKeyRateLimiter(cfg.CheckoutRateLimit, cfg.CheckoutRateWindow),
		LoginLimiter:    kit.NewKeyRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
	}

	handler := storefront.NewHandler(s, storefront.HTTPDeps{
		Log:            log,
		Metrics:        metrics,
		Registry:       reg,
		CORSOrigins:    cfg.CORSOrigins,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
	})

	if err := kit.RunHTTPServer(cfg.HTTPAddr, handler, cfg.ShutdownTimeout, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
