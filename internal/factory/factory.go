package factory

import (
	"context"
	"fmt"
	"sync"

	"membership-service/internal/calendar"
	"membership-service/internal/config"
	"membership-service/internal/events"
	"membership-service/internal/handler"
	"membership-service/internal/payments"
	"membership-service/internal/ratelimit"
	"membership-service/internal/service"
	"membership-service/internal/store"
	"membership-service/internal/tls"
	"membership-service/internal/util"

	"github.com/go-chi/chi/v5"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.Manager

	// Clients
	postgres    *store.PostgresClient
	redisLedger *ratelimit.RedisLedger
	publisher   *events.Publisher
	stripe      *payments.StripeClient
	google      *calendar.GoogleClient

	// Repositories
	users       store.UserRepository
	memberships store.MembershipRepository
	bookings    store.BookingRepository

	limiter *ratelimit.Limiter

	closeOnce sync.Once
}

// NewFactory loads configuration and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	logger := util.Get()

	f := &Factory{config: cfg}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewManager(&tls.Config{
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
		})
	}

	// Postgres row store
	postgres, err := store.NewPostgresClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	f.postgres = postgres
	f.users = store.NewUserRepository(postgres, logger)
	f.memberships = store.NewMembershipRepository(postgres, logger)
	f.bookings = store.NewBookingRepository(postgres, logger)

	// Rate-limit ledger: Redis when configured, otherwise in-memory
	var ledger ratelimit.Ledger
	if cfg.Redis.URL != "" {
		redisLedger, err := ratelimit.NewRedisLedger(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("redis ledger: %w", err)
		}
		f.redisLedger = redisLedger
		ledger = redisLedger
	} else {
		util.Info("Redis not configured - using in-memory rate-limit ledger")
		ledger = ratelimit.NewMemoryLedger()
	}
	f.limiter = ratelimit.NewLimiter(ledger, ratelimit.DefaultPolicies(), logger)

	// Audit events (optional, no-op without brokers)
	f.publisher = events.NewPublisher(cfg, logger)

	// Payment provider
	if cfg.Stripe.SecretKey != "" {
		f.stripe = payments.NewStripeClient(cfg, logger)
		util.Info("Stripe client initialized")
	} else {
		util.Warn("Stripe secret key not configured - payments disabled")
	}

	// Calendar provider
	f.google = calendar.NewGoogleClient(cfg, logger)
	if !cfg.CalendarConfigured() {
		util.Warn("Google OAuth client not configured - calendar linkage disabled")
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("payment_bypass", cfg.Stripe.PaymentBypass),
		util.Bool("shared_ledger", f.redisLedger != nil),
	)
	return f, nil
}

// Router wires services and handlers onto the HTTP router.
func (f *Factory) Router() chi.Router {
	logger := util.Get()

	adminService := service.NewAdminService(f.users, f.config, f.publisher, logger)

	// PaymentProvider is an interface; a typed nil *StripeClient must
	// not leak into it when payments are disabled
	var paymentProvider service.PaymentProvider
	if f.stripe != nil {
		paymentProvider = f.stripe
	}
	billingService := service.NewBillingService(
		f.users, f.memberships, paymentProvider, f.config, f.publisher, logger)
	calendarService := service.NewCalendarService(
		f.users, f.bookings, f.google, f.config, f.publisher, logger)

	return handler.NewRouter(
		handler.NewAdminHandler(adminService, logger),
		handler.NewBillingHandler(billingService, logger),
		handler.NewCalendarHandler(calendarService, f.config.Google.AdminPageURL, logger),
		f.limiter,
		logger,
	)
}

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.postgres != nil {
		if err := f.postgres.HealthCheck(ctx); err != nil {
			healthErrors["postgres"] = err
		}
	} else {
		healthErrors["postgres"] = fmt.Errorf("postgres client not initialized")
	}

	if f.redisLedger != nil {
		if err := f.redisLedger.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}

	return healthErrors
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory...")

		if f.publisher != nil {
			if err := f.publisher.Close(); err != nil {
				util.Error("Failed to close audit publisher", util.ErrorField(err))
			}
		}

		if f.redisLedger != nil {
			if err := f.redisLedger.Close(); err != nil {
				util.Error("Failed to close Redis ledger", util.ErrorField(err))
			}
		}

		if f.postgres != nil {
			if err := f.postgres.Close(); err != nil {
				util.Error("Failed to close Postgres client", util.ErrorField(err))
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})
	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.Manager {
	return f.tlsManager
}
