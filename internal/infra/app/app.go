package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/janis-gruettmueller/lightweight-erp-system/internal/core/port"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/config"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/database"
	kafkainfra "github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/kafka"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/logger"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/mail"
	redisinfra "github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/redis"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/scheduler"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/infra/security"
	postgresrepo "github.com/janis-gruettmueller/lightweight-erp-system/internal/repository/postgres"
	redisrepo "github.com/janis-gruettmueller/lightweight-erp-system/internal/repository/redis"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/transport/http/middleware"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/transport/http/routes"
	"github.com/janis-gruettmueller/lightweight-erp-system/internal/usecase"
)

// Application owns the process lifecycle: wiring at New, serving at Run,
// orderly teardown on context cancellation.
type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	producer  *kafkainfra.Producer
	scheduler *scheduler.Scheduler
}

// New assembles the application. The password policy is loaded from the
// database here; a broken settings catalogue refuses to start rather than
// refusing every login later.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	settings, err := repos.Settings.LoadPasswordSettings(ctx)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("load password settings: %w", err)
	}
	policy, err := security.NewPasswordPolicy(settings)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("build password policy: %w", err)
	}

	hasher := security.NewBCryptHasher(0)

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	sessions := redisrepo.NewSessionStore(redisClient.Client(), cfg.Redis.SessionPrefix)
	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "leanx:ratelimit",
		TTL:       2 * time.Minute,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	mailer := mail.NewSMTPMailer(cfg.SMTP, log)

	// One lock set across both engines: a login attempt and a concurrent
	// password change on the same account must serialize.
	accountLocks := usecase.NewKeyedMutex()
	authService := usecase.NewAuthService(repos.Users, hasher, policy, eventPublisher, log).
		WithLocks(accountLocks)
	passwordService := usecase.NewPasswordService(repos.Users, repos.History, hasher, policy, eventPublisher, log).
		WithLocks(accountLocks)
	accountService := usecase.NewAccountService(repos.Users, repos.Procedures, eventPublisher, log)
	onboardingService := usecase.NewOnboardingService(
		repos.Employees,
		repos.Users,
		repos.Procedures,
		policy,
		hasher,
		mailer,
		eventPublisher,
		log,
		cfg.Onboarding.MailRetries,
		cfg.Onboarding.MailRetryWait,
	)

	sched := scheduler.New(log)
	if err := sched.Register(cfg.Onboarding.CronSpec, onboardingService); err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("register onboarding job: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Sessions:    sessions,
		Users:       repos.Users,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:       authService,
			Passwords:  passwordService,
			Accounts:   accountService,
			Onboarding: onboardingService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		producer:  producer,
		scheduler: sched,
	}, nil
}

// Run serves HTTP and the scheduler until the context is cancelled, then
// shuts everything down in reverse order.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	a.scheduler.Start()
	defer a.scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
