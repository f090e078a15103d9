package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/khatape/khata-ledger/internal/config"
	"github.com/khatape/khata-ledger/internal/processor"
	"github.com/khatape/khata-ledger/internal/queue"
	"github.com/khatape/khata-ledger/internal/repository"
	"github.com/khatape/khata-ledger/internal/services"
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
	if err := logger.Configure(cfg.LoggerOptions("reconciler")); err != nil {
		logger.Error("failed to configure logger", "error", err)
		return
	}
	defer logger.Sync()
	logger.Info("starting khata reconciler", "version", version, "commit", commit, "date", date)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.PgDebug())
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}
	defer db.Close()

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("reconciler"))
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	queueConf := queue.QueueConfig{
		Name:              cfg.QueueName,
		ConsumerGroup:     cfg.QueueConsumerGroup,
		ConsumerName:      cfg.QueueConsumerName,
		MaxRetries:        cfg.QueueMaxRetries,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		PollInterval:      cfg.QueuePollInterval,
		BatchSize:         cfg.QueueBatchSize,
		MaxLen:            cfg.QueueMaxLen,
		EnableDLQ:         cfg.QueueEnableDLQ,
	}
	if queueConf.ConsumerName == "" {
		if hostname, err := os.Hostname(); err == nil {
			queueConf.ConsumerName = hostname
		}
	}

	businessRepo := repository.NewBusinessRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	creditRepo := repository.NewCustomerCreditRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	// the reconciler never schedules itself, so the ledger runs without a publisher
	ledgerService := services.NewLedgerService(businessRepo, customerRepo, creditRepo, transactionRepo)

	lockConf := processor.DefaultLockConfig()
	lockConf.TTL = cfg.ReconcileLockTTL
	lock := processor.NewPairLock(redisAdap, lockConf)

	service := processor.NewProcessorService(redisAdap, processor.ServiceConfig{
		Queue:     queueConf,
		Consumers: 1,
		Workers:   cfg.ReconcileWorkers,
	})
	service.RegisterProcessor(processor.NewReconcileProcessor(ledgerService, lock, redisAdap))

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

	if cfg.ReconcileAllOnBoot {
		q, err := queue.NewQueue(redisAdap, queueConf)
		if err != nil {
			logger.Error("failed creating queue", "error", err)
			return
		}
		publisher := queue.NewReconcilePublisher(q, redisAdap, cfg.ReconcileDebounce)
		if _, err := processor.Sweep(context.Background(), creditRepo, publisher, "boot"); err != nil {
			logger.Error("boot sweep failed", "error", err)
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	<-c
	service.Stop()
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
