package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/keepcase/billing/internal/api"
	"github.com/keepcase/billing/internal/billing"
	"github.com/keepcase/billing/internal/firestore"
	"github.com/keepcase/billing/internal/httpserver"
)

type config struct {
	App struct {
		BaseURL  string `env:"APP_BASE_URL,required"`
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	}
	Stripe    billing.StripeConfig
	Firestore firestore.Config
	HTTP      httpserver.Config
}

func main() {
	// Missing .env is fine in production where the environment is real.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		slog.Error("failed to parse configuration", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.App.LogLevel),
	}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, log *slog.Logger) error {
	fsClient, err := firestore.New(ctx, cfg.Firestore)
	if err != nil {
		return err
	}
	defer fsClient.Close()

	users := firestore.NewUserStore(fsClient)
	subs := firestore.NewSubscriptionStore(fsClient)

	provider, err := billing.NewStripeProvider(cfg.Stripe)
	if err != nil {
		return err
	}

	resolver := billing.NewCustomerResolver(users, provider, log)
	checkout := billing.NewCheckoutService(resolver, provider, cfg.App.BaseURL, log)
	portal := billing.NewPortalService(users, provider, cfg.App.BaseURL)
	webhooks := billing.NewWebhookProcessor(users, subs, provider, log)

	handler := api.NewHandler(checkout, portal, webhooks, subs, cfg.Stripe.PublishableKey, log)
	router := api.NewRouter(handler, log)

	srv := httpserver.New(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
