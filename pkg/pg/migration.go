package pg

import (
	"fmt"

	"github.com/khatape/khata-ledger/pkg/logger"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir.
func Migrate(cfg Config, dir string) error {
	return runGoose(cfg, func(db gooseDB) error { return goose.Up(db, dir) })
}

// MigrateStatus logs the applied state of every migration in dir.
func MigrateStatus(cfg Config, dir string) error {
	return runGoose(cfg, func(db gooseDB) error { return goose.Status(db, dir) })
}

func runGoose(cfg Config, fn func(db gooseDB) error) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetLogger(gooseLogger{})
	return fn(db)
}

type gooseLogger struct{}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Panic(fmt.Sprintf(format, v...))
}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logger.Info(fmt.Sprintf(format, v...))
}
