package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/simplecom/checkout/internal/checkout"
	internalcli "github.com/simplecom/checkout/internal/cli"
	"github.com/simplecom/checkout/internal/config"
	"github.com/simplecom/checkout/internal/database"
	"github.com/simplecom/checkout/internal/handlers"
	"github.com/simplecom/checkout/internal/intents"
	"github.com/simplecom/checkout/internal/logging"
	"github.com/simplecom/checkout/internal/metrics"
	"github.com/simplecom/checkout/internal/provider"
	"github.com/simplecom/checkout/internal/repository"
	"github.com/simplecom/checkout/internal/services"
	"github.com/simplecom/checkout/internal/session"
)

var version = "0.1.0"

// sessionBackend is the store and guard pair used by checkout forms
type sessionBackend struct {
	store session.Store
	guard checkout.Guard
	close func() error
}

func newSessionBackend(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*sessionBackend, error) {
	if !cfg.Enabled() {
		logger.Info("using in-memory checkout sessions")
		return &sessionBackend{
			store: session.NewMemoryStore(cfg.SessionTTL),
			guard: session.NewMemoryGuard(session.DefaultGuardTTL),
			close: func() error { return nil },
		}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis checkout sessions", zap.String("addr", cfg.Addr))

	return &sessionBackend{
		store: session.NewRedisStore(rdb, cfg.SessionTTL),
		guard: session.NewRedisGuard(rdb, session.DefaultGuardTTL),
		close: rdb.Close,
	}, nil
}

// buildServerDependencies creates all dependencies needed for the server
func buildServerDependencies(ctx context.Context, db *sql.DB, serverConfig config.ServerConfig, sessions *sessionBackend, logger *zap.Logger) (internalcli.ServerDependencies, error) {
	deps := internalcli.ServerDependencies{
		ServerConfig: serverConfig,
		Logger:       logger,
	}

	stripeConfig, err := config.LoadStripeConfig(os.Getenv, serverConfig)
	if err != nil {
		return deps, fmt.Errorf("missing required Stripe configuration: %w", err)
	}

	// Backend side: secret key, payment intents persisted in Postgres
	backends := &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(stripeConfig.APIBase),
		}),
	}
	stripeClient := services.NewStripeClient(stripeConfig.SecretKey, backends, logger)
	paymentRepo := repository.NewPaymentRepository(db)
	paymentService := services.NewPaymentService(stripeClient, paymentRepo, stripeConfig.Amount, stripeConfig.Currency, logger)

	// Form side: publishable key client, built once in the background
	options := provider.NewOptions(stripeConfig.Amount, stripeConfig.Currency)
	if err := options.Validate(); err != nil {
		return deps, fmt.Errorf("invalid payment element options: %w", err)
	}
	paymentContext := provider.NewContext(
		stripeConfig.PublishableKey,
		options,
		provider.NewStripeJSLoader(stripeConfig.APIBase, logger),
		logger,
	)
	paymentContext.Load(ctx)

	recorder := metrics.New()
	deps.MetricsHandler = recorder.Handler()

	checkoutHandler, err := handlers.NewCheckoutHandler("templates/checkout.html", handlers.CheckoutDependencies{
		Provider:  paymentContext,
		Intents:   intents.NewHTTPRequester(stripeConfig.PaymentIntentURL, logger),
		Store:     sessions.store,
		Guard:     sessions.guard,
		Recorder:  recorder,
		ReturnURL: stripeConfig.ReturnURL,
		Secure:    strings.HasPrefix(serverConfig.BaseURL, "https://"),
		Logger:    logger,
	})
	if err != nil {
		return deps, fmt.Errorf("failed to create checkout handler: %w", err)
	}
	deps.CheckoutHandler = checkoutHandler

	deps.IntentHandler = handlers.NewIntentHandler(paymentService, recorder, logger)

	completeHandler, err := handlers.NewCompleteHandler("templates/complete.html", paymentService, logger)
	if err != nil {
		return deps, fmt.Errorf("failed to create completion handler: %w", err)
	}
	deps.CompleteHandler = completeHandler

	failureHandler, err := handlers.NewFailureHandler("templates/failed.html", logger)
	if err != nil {
		return deps, fmt.Errorf("failed to create failure handler: %w", err)
	}
	deps.FailureHandler = failureHandler

	return deps, nil
}

// connectDatabase opens the payments database and applies pending migrations
func connectDatabase(ctx context.Context, logger *zap.Logger) (*sql.DB, error) {
	pgConfig, err := config.LoadPostgresConfig(os.Getenv)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(ctx, pgConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("connected to database", zap.String("host", pgConfig.Host), zap.String("database", pgConfig.Database))

	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the checkout web server",
		Action: func(c *cli.Context) error {
			serverConfig, err := config.LoadServerConfig(os.Getenv)
			if err != nil {
				return err
			}

			logger, err := logging.New(serverConfig.IsProduction())
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			db, err := connectDatabase(c.Context, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			redisConfig, err := config.LoadRedisConfig(os.Getenv)
			if err != nil {
				return err
			}
			sessions, err := newSessionBackend(c.Context, redisConfig, logger)
			if err != nil {
				return err
			}
			defer sessions.close()

			deps, err := buildServerDependencies(c.Context, db, serverConfig, sessions, logger)
			if err != nil {
				return err
			}

			return internalcli.RunServe(deps)
		},
	}
}

// MigrateCommand returns the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(c *cli.Context) error {
			logger, err := logging.New(false)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			db, err := connectDatabase(c.Context, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			logger.Info("database migrations applied")
			return nil
		},
	}
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	app := &cli.App{
		Name:    "checkout",
		Usage:   "Stripe checkout server",
		Version: version,
		Commands: []*cli.Command{
			ServeCommand(),
			MigrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
