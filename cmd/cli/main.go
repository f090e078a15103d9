package main

import (
	"context"
	"os"
	"strings"

	"github.com/khatape/khata-ledger/internal/config"
	"github.com/khatape/khata-ledger/internal/processor"
	"github.com/khatape/khata-ledger/internal/queue"
	"github.com/khatape/khata-ledger/internal/repository"
	"github.com/khatape/khata-ledger/internal/services"
	"github.com/khatape/khata-ledger/pkg/logger"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/khatape/khata-ledger/pkg/redis"
)

const usage = "usage: cli <migrate|status|reconcile-all> [--env=.env] [--dir=./migrations] [--direct]"

func main() {
	err := config.Load(getEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(config.Get().LoggerOptions("cli")); err != nil {
		logger.Error("failed to configure logger", "error", err)
		os.Exit(1)
	}

	cmd := "migrate"
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "--") {
		cmd = os.Args[1]
	}

	switch cmd {
	case "migrate":
		// cli migrate --dir=./migrations
		err = pg.Migrate(config.Get().PostgresWrite(), getMigrationPath())
	case "status":
		err = pg.MigrateStatus(config.Get().PostgresWrite(), getMigrationPath())
	case "reconcile-all":
		err = reconcileAll(context.Background(), hasFlag("--direct"))
	default:
		logger.Error(usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

// reconcileAll repairs every cached balance, either inline or by queueing jobs for the reconciler.
func reconcileAll(ctx context.Context, direct bool) error {
	cfg := config.Get()
	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), false)
	if err != nil {
		return err
	}
	defer db.Close()

	creditRepo := repository.NewCustomerCreditRepository(db)

	if direct {
		ledger := services.NewLedgerService(
			repository.NewBusinessRepository(db),
			repository.NewCustomerRepository(db),
			creditRepo,
			repository.NewTransactionRepository(db),
		)
		pairs, err := creditRepo.ListPairs(ctx)
		if err != nil {
			return err
		}
		repaired := 0
		for _, p := range pairs {
			res, err := ledger.ReconcilePair(ctx, p.BusinessID, p.CustomerID, "cli")
			if err != nil {
				return err
			}
			if res.Drifted {
				repaired++
			}
		}
		logger.Info("reconcile-all finished", "pairs", len(pairs), "repaired", repaired)
		return nil
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, cfg.RedisOptions("cli"))
	if err != nil {
		return err
	}
	q, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:          cfg.QueueName,
		ConsumerGroup: cfg.QueueConsumerGroup,
		MaxLen:        cfg.QueueMaxLen,
		EnableDLQ:     cfg.QueueEnableDLQ,
	})
	if err != nil {
		return err
	}
	_, err = processor.Sweep(ctx, creditRepo, queue.NewReconcilePublisher(q, redisAdap, cfg.ReconcileDebounce), "cli")
	return err
}

func hasFlag(flag string) bool {
	for _, v := range os.Args {
		if v == flag {
			return true
		}
	}
	return false
}

func getEnvPath() string {
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
	if _, err := os.Stat(".env"); err != nil {
		return ""
	}
	return ".env"
}

func getMigrationPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--dir=") {
			s := strings.Split(v, "=")
			return s[1]
		}
	}
	return config.Get().MigrationsDir
}
