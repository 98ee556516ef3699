package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/patronhq/creatorkit/modules/billing"
	"github.com/patronhq/creatorkit/modules/membership"
	"github.com/patronhq/creatorkit/pkg/config"
	"github.com/patronhq/creatorkit/pkg/httpserver"
	"github.com/patronhq/creatorkit/pkg/jwt"
	"github.com/patronhq/creatorkit/pkg/logger"
	"github.com/patronhq/creatorkit/pkg/pg"
	redispkg "github.com/patronhq/creatorkit/pkg/redis"
)

type appConfig struct {
	Logger   logger.Config
	PG       pg.Config
	Redis    redispkg.Config
	HTTP     httpserver.Config
	Checkout membership.CheckoutConfig
	Sweeper  membership.SweeperConfig

	BillingProvider string        `env:"BILLING_PROVIDER" envDefault:"paddle"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY,required"`
	DedupeTTL       time.Duration `env:"EVENT_DEDUPE_TTL" envDefault:"24h"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	var paddleCfg billing.PaddleConfig
	var genericCfg billing.GenericConfig
	switch cfg.BillingProvider {
	case "paddle":
		config.MustLoad(&paddleCfg)
	case "generic":
		config.MustLoad(&genericCfg)
	}

	log := logger.NewFromConfig(cfg.Logger)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	redisClient, err := redispkg.Connect(ctx, cfg.Redis)
	if err != nil {
		// The duplicate cache is an optimization; the engine runs without it.
		log.WarnContext(ctx, "redis unavailable, duplicate cache disabled", logger.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var provider billing.Provider
	switch cfg.BillingProvider {
	case "paddle":
		provider, err = billing.NewPaddleProvider(paddleCfg)
	case "generic":
		provider, err = billing.NewGenericProvider(genericCfg)
	default:
		err = fmt.Errorf("unknown billing provider %q", cfg.BillingProvider)
	}
	if err != nil {
		return fmt.Errorf("billing provider: %w", err)
	}

	jwtService, err := jwt.NewFromString(cfg.JWTSigningKey)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}

	tiers := membership.NewTierRegistry(pool)
	subs := membership.NewSubscriptionStore(pool)
	ledger := membership.NewEventLedger(pool)
	engine := membership.NewReconciler(pool, tiers, subs, ledger, log)
	checkout := membership.NewCheckout(cfg.Checkout, provider, tiers, subs, log)
	dedupe := membership.NewDuplicateCache(redisClient, cfg.DedupeTTL, log)
	gateway := membership.NewGateway(provider, engine, dedupe, log)
	sweeper := membership.NewSweeper(cfg.Sweeper, subs, log)

	api := membership.NewHandler(tiers, subs, checkout, engine, gateway, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	probes := []func(context.Context) error{pg.Healthcheck(pool)}
	if redisClient != nil {
		probes = append(probes, redispkg.Healthcheck(redisClient))
	}
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, probes...))
	r.Mount("/", api.Router(jwt.Middleware(jwtService)))

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, r)
	})
	g.Go(func() error {
		if err := sweeper.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	log.InfoContext(ctx, "server started", slog.String("addr", cfg.HTTP.Addr))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.InfoContext(context.Background(), "server stopped")
	return nil
}
