package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khatape/khata-ledger/internal/config"
	"github.com/khatape/khata-ledger/internal/customerapp"
	"github.com/khatape/khata-ledger/internal/repository"
	"github.com/khatape/khata-ledger/internal/services"
	"github.com/khatape/khata-ledger/pkg/pg"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.Load(argContainsEnvPath()); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg := config.Get()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.PgDebug())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed connecting to pg")
	}
	defer db.Close()

	businessRepo := repository.NewBusinessRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	creditRepo := repository.NewCustomerCreditRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	pendingRepo := repository.NewPendingPaymentRepository(db)

	ledgerService := services.NewLedgerService(businessRepo, customerRepo, creditRepo, transactionRepo)
	// customers only submit; approvals and their notifications belong to the business api
	paymentService := services.NewPaymentService(db, businessRepo, customerRepo, pendingRepo, transactionRepo, ledgerService, nil)

	opts := customerapp.Options{AllowedOrigins: strings.Split(cfg.CustomerAllowedOrigins, ",")}
	if cfg.NewRelicLicenseKey != "" {
		app, err := newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelicAppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize New Relic")
		} else {
			opts.Middleware = append(opts.Middleware, nrgin.Middleware(app))
			defer app.Shutdown(5 * time.Second)
		}
	}

	handler := customerapp.NewHandler(ledgerService, paymentService, customerapp.NewInbox(cfg.CustomerInboxSize, cfg.CustomerInboxCustomers), log.Logger)
	router := customerapp.SetupRouter(handler, opts)

	srv := &http.Server{
		Addr:         cfg.CustomerHttpListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Stat(s[1]); err != nil {
				log.Error().Err(err).Msg("Failed to open the passed env file")
				return ""
			}
			return s[1]
		}
	}
	return ""
}
