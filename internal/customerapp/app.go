package customerapp

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/internal/notifier"
	"github.com/rs/zerolog"
)

type Ledger interface {
	GetBalance(ctx context.Context, businessID, customerID uuid.UUID) (model.Amount, error)
	Accounts(ctx context.Context, customerID uuid.UUID) ([]*model.CustomerAccount, error)
}

type Payments interface {
	SubmitPendingPayment(ctx context.Context, req model.PendingPaymentCreateRequest) (*model.PendingPayment, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]*model.PendingPayment, error)
}

type Options struct {
	AllowedOrigins []string
	// Middleware runs before every route, e.g. New Relic instrumentation.
	Middleware []gin.HandlerFunc
}

type Handler struct {
	ledger   Ledger
	payments Payments
	inbox    *Inbox
	log      zerolog.Logger
}

func NewHandler(ledger Ledger, payments Payments, inbox *Inbox, log zerolog.Logger) *Handler {
	return &Handler{ledger: ledger, payments: payments, inbox: inbox, log: log}
}

// SetupRouter configures all routes of the customer app.
func SetupRouter(h *Handler, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	for _, m := range opts.Middleware {
		router.Use(m)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	router.GET("/health", h.HealthCheck)
	router.POST(notifier.StatusUpdatePath, h.PaymentStatusUpdate)

	v1 := router.Group("/api/v1/customers/:customer_id")
	{
		v1.GET("/accounts", h.ListAccounts)
		v1.GET("/businesses/:business_id/balance", h.GetBalance)
		v1.POST("/businesses/:business_id/payments", h.SubmitPayment)
		v1.GET("/payments", h.ListPayments)
		v1.GET("/notifications", h.ListNotifications)
	}

	return router
}
