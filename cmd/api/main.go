package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/khatape/khata-ledger/internal/config"
	"github.com/khatape/khata-ledger/internal/handlers"
	"github.com/khatape/khata-ledger/internal/notifier"
	"github.com/khatape/khata-ledger/internal/queue"
	"github.com/khatape/khata-ledger/internal/repository"
	"github.com/khatape/khata-ledger/internal/services"
	xhttp "github.com/khatape/khata-ledger/pkg/http"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/khatape/khata-ledger/pkg/prom"
	"github.com/khatape/khata-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if err := logger.Configure(cfg.LoggerOptions("api")); err != nil {
		logger.Error("failed to configure logger", "error", err)
		return
	}
	defer logger.Sync()
	logger.Info("starting khata api", "version", version, "commit", commit, "date", date)

	s := xhttp.NewServer(xhttp.DefaultServerOption.WithOverrides(
		cfg.HttpServerReadTimeout, cfg.HttpServerWriteTimeout,
		cfg.HttpServerReadBufferSize, cfg.HttpServerWriteBufferSize,
	))
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(10 * time.Second))

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.PgDebug())
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	defer db.Close()

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("api"))
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              cfg.QueueName,
		ConsumerGroup:     cfg.QueueConsumerGroup,
		ConsumerName:      cfg.QueueConsumerName,
		MaxRetries:        cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		EnableDLQ:         cfg.QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating queue", "error", err)
		return
	}

	notifyConf := notifier.DefaultConfig(cfg.CustomerAppURL)
	notifyConf.Timeout = cfg.NotifyTimeout
	notifyConf.MaxRetries = cfg.NotifyMaxRetries
	notifyConf.CircuitBreakerThreshold = cfg.NotifyBreakerThreshold
	notifyConf.CircuitBreakerTimeout = cfg.NotifyBreakerCooldown
	notifyClient, err := notifier.NewClient(notifyConf)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		return
	}
	defer notifyClient.CloseIdleConnections()

	userRepo := repository.NewUserRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	creditRepo := repository.NewCustomerCreditRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	pendingRepo := repository.NewPendingPaymentRepository(db)

	// services
	ledgerService := services.NewLedgerService(businessRepo, customerRepo, creditRepo, transactionRepo).
		WithScheduler(queue.NewReconcilePublisher(q, redisAdap, cfg.ReconcileDebounce))
	paymentService := services.NewPaymentService(db, businessRepo, customerRepo, pendingRepo, transactionRepo, ledgerService, notifyClient)
	paymentService.SetNotifyTimeout(cfg.NotifyTimeout)
	businessService := services.NewBusinessService(db, userRepo, businessRepo, customerRepo, creditRepo, ledgerService)
	reminderService := services.NewReminderService(businessRepo, customerRepo, ledgerService, cfg.PublicPortalURL)

	// v1 handlers
	g := xhttp.APIGroup(s.Router)
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": handlers.PingFunc(db.Ping),
		"redis":    redisAdap,
	}))
	handlers.RegisterBusinessRoutes(g, handlers.NewBusinessHandler(businessService, reminderService))
	handlers.RegisterLedgerRoutes(g, handlers.NewLedgerHandler(ledgerService))
	handlers.RegisterPaymentRoutes(g, handlers.NewPaymentHandler(paymentService))

	if cfg.MetricsListenAddr != "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed to create prometheus metrics", "error", err)
			return
		}
		go prom.ListenAndServer(cfg.MetricsListenAddr, cfg.MetricsURI)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
			c <- syscall.SIGTERM
		}
	}()

	<-c
	s.Shutdown()

	// let in-flight status notifications finish
	done := make(chan struct{})
	go func() {
		paymentService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.NotifyTimeout):
		logger.Warn("shutdown before all notifications were delivered")
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
