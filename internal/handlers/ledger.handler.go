package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/internal/statement"
	"github.com/khatape/khata-ledger/pkg/apperr"
	xhttp "github.com/khatape/khata-ledger/pkg/http"
)

type LedgerService interface {
	GetBalance(ctx context.Context, businessID, customerID uuid.UUID) (model.Amount, error)
	ReconcilePair(ctx context.Context, businessID, customerID uuid.UUID, source string) (*model.ReconcileResult, error)
	RecordTransaction(ctx context.Context, req model.TransactionCreateRequest) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter model.TransactionFilter) ([]*model.Transaction, int64, error)
	Summary(ctx context.Context, businessID uuid.UUID) (*model.BusinessSummary, error)
	CustomerBalances(ctx context.Context, businessID uuid.UUID) ([]*model.CustomerBalance, error)
	Statement(ctx context.Context, businessID, customerID uuid.UUID) (*model.Statement, error)
}

type LedgerHandler struct {
	ledger LedgerService
	now    func() time.Time
}

func RegisterLedgerRoutes(e *router.Group, h *LedgerHandler) {
	b := e.Group("/businesses/{business_id}")
	b.GET("/summary", h.GetSummary)
	b.GET("/customers", h.ListCustomerBalances)
	b.GET("/customers/{customer_id}/balance", h.GetBalance)
	b.POST("/customers/{customer_id}/reconcile", h.Reconcile)
	b.GET("/customers/{customer_id}/statement", h.GetStatement)
	b.POST("/transactions", h.RecordTransaction)
	b.GET("/transactions", h.ListTransactions)
}

func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, now: time.Now}
}

type balanceResponse struct {
	BusinessID uuid.UUID `json:"business_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Balance    string    `json:"balance"`
}

type reconcileResponse struct {
	balanceResponse
	PreviousBalance string `json:"previous_balance"`
	Drifted         bool   `json:"drifted"`
	Created         bool   `json:"created"`
}

type customerBalanceResponse struct {
	Customer      *model.Customer `json:"customer"`
	Balance       string          `json:"balance"`
	CachedBalance string          `json:"cached_balance"`
}

type summaryResponse struct {
	Business           *model.Business      `json:"business"`
	CustomerCount      int                  `json:"customer_count"`
	TotalOutstanding   string               `json:"total_outstanding"`
	RecentTransactions []*model.Transaction `json:"recent_transactions"`
}

type recordTransactionRequest struct {
	CustomerID      uuid.UUID             `json:"customer_id"`
	Amount          model.Amount          `json:"amount"`
	Type            model.TransactionType `json:"transaction_type"`
	Notes           string                `json:"notes"`
	ReceiptImageURL *string               `json:"receipt_image_url"`
	PaymentMethod   *string               `json:"payment_method"`
}

func (h *LedgerHandler) GetBalance(ctx *xhttp.RequestCtx) {
	businessID, customerID, err := pairFromPath(ctx)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	balance, err := h.ledger.GetBalance(ctx, businessID, customerID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, balanceResponse{
		BusinessID: businessID,
		CustomerID: customerID,
		Balance:    balance.StringFixed(model.AmountScale),
	})
}

func (h *LedgerHandler) Reconcile(ctx *xhttp.RequestCtx) {
	businessID, customerID, err := pairFromPath(ctx)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	res, err := h.ledger.ReconcilePair(ctx, businessID, customerID, "api")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, reconcileResponse{
		balanceResponse: balanceResponse{
			BusinessID: businessID,
			CustomerID: customerID,
			Balance:    res.Balance.StringFixed(model.AmountScale),
		},
		PreviousBalance: res.Previous.StringFixed(model.AmountScale),
		Drifted:         res.Drifted,
		Created:         !res.Existed,
	})
}

func (h *LedgerHandler) RecordTransaction(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	actor, err := actorID(ctx)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	var req recordTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, err)
		return
	}

	tx, err := h.ledger.RecordTransaction(ctx, model.TransactionCreateRequest{
		BusinessID:      businessID,
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		Type:            req.Type,
		Notes:           req.Notes,
		ReceiptImageURL: req.ReceiptImageURL,
		PaymentMethod:   req.PaymentMethod,
		CreatedBy:       actor,
	})
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, tx)
}

func (h *LedgerHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	filter, err := transactionFilter(ctx, businessID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	txs, total, err := h.ledger.ListTransactions(ctx, filter)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listResponse[*model.Transaction]{Items: txs, Total: total})
}

func transactionFilter(ctx *xhttp.RequestCtx, businessID uuid.UUID) (model.TransactionFilter, error) {
	f := model.TransactionFilter{
		BusinessID: &businessID,
		Limit:      queryInt(ctx, "limit"),
		Offset:     queryInt(ctx, "offset"),
	}
	if v := query(ctx, "customer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.Validation("list_transactions", "customer_id must be a uuid")
		}
		f.CustomerID = &id
	}
	if v := query(ctx, "type"); v != "" {
		t := model.TransactionType(v)
		if !t.Valid() {
			return f, apperr.Validation("list_transactions", "type must be credit or payment")
		}
		f.Type = &t
	}
	if v := query(ctx, "from"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return f, apperr.Validation("list_transactions", "invalid from time")
		}
		f.From = &t
	}
	if v := query(ctx, "to"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			return f, apperr.Validation("list_transactions", "invalid to time")
		}
		f.To = &t
	}
	return f, nil
}

func (h *LedgerHandler) GetSummary(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	sum, err := h.ledger.Summary(ctx, businessID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, summaryResponse{
		Business:           sum.Business,
		CustomerCount:      sum.CustomerCount,
		TotalOutstanding:   sum.TotalOutstanding.StringFixed(model.AmountScale),
		RecentTransactions: sum.RecentTransactions,
	})
}

func (h *LedgerHandler) ListCustomerBalances(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	balances, err := h.ledger.CustomerBalances(ctx, businessID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	items := make([]customerBalanceResponse, 0, len(balances))
	for _, b := range balances {
		items = append(items, customerBalanceResponse{
			Customer:      b.Customer,
			Balance:       b.Balance.StringFixed(model.AmountScale),
			CachedBalance: b.Cached.StringFixed(model.AmountScale),
		})
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listResponse[customerBalanceResponse]{Items: items, Total: int64(len(items))})
}

func (h *LedgerHandler) GetStatement(ctx *xhttp.RequestCtx) {
	businessID, customerID, err := pairFromPath(ctx)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	st, err := h.ledger.Statement(ctx, businessID, customerID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	at := h.now()
	body, err := statement.Render(st.Business, st.Customer, st.Transactions, at)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusOK)
	ctx.SetContentType(statement.ContentType)
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+statement.FileName(st.Business, st.Customer, at)+`"`)
	ctx.SetBody(body)
}

func pairFromPath(ctx *xhttp.RequestCtx) (uuid.UUID, uuid.UUID, error) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	customerID, err := pathUUID(ctx, "customer_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return businessID, customerID, nil
}
