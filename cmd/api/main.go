package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"modelcast-server/internal/cloudinary"
	"modelcast-server/internal/domain"
	"modelcast-server/internal/fashn"
	"modelcast-server/internal/http/handlers"
	httpapi "modelcast-server/internal/http/httpapi"
	"modelcast-server/internal/infra"
	"modelcast-server/internal/infra/geoip"
	"modelcast-server/internal/middleware"
	"modelcast-server/internal/replicate"
	"modelcast-server/internal/stripe"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, country tagging disabled")
	}
	var countryLookup middleware.CountryLookup
	if resolver != nil {
		if closer, ok := resolver.(io.Closer); ok {
			defer func() { _ = closer.Close() }()
		}
		countryLookup = resolver.CountryCode
	}

	var fallback fashn.Runner
	if cfg.ReplicateEnabled {
		fallback = replicate.NewClient(replicate.Options{
			BaseURL: cfg.ReplicateBaseURL,
			Token:   cfg.ReplicateToken,
		})
	}

	app := &handlers.App{
		SQL:     infra.NewSQLRunner(dbpool, logger),
		Logger:  logger,
		Config:  cfg,
		Catalog: domain.NewPlanCatalog(cfg.StripePricePro, cfg.StripePriceStudio),
		Primary: fashn.NewClient(fashn.Options{
			BaseURL: cfg.FashnBaseURL,
			APIKey:  cfg.FashnAPIKey,
		}),
		Fallback: fallback,
		Stripe:   stripe.NewClient(stripe.Options{SecretKey: cfg.StripeSecretKey}),
		Assets: cloudinary.NewAdminClient(cloudinary.AdminOptions{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		}),
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		AllowedOrigins: []string{cfg.SiteURL},
		RateLimit:      cfg.RateLimitPerMin,
		CountryLookup:  countryLookup,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
