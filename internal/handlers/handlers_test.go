package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
	xhttp "github.com/khatape/khata-ledger/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetBalance(ctx context.Context, businessID, customerID uuid.UUID) (model.Amount, error) {
	args := m.Called(ctx, businessID, customerID)
	return args.Get(0).(model.Amount), args.Error(1)
}

func (m *MockLedgerService) ReconcilePair(ctx context.Context, businessID, customerID uuid.UUID, source string) (*model.ReconcileResult, error) {
	args := m.Called(ctx, businessID, customerID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconcileResult), args.Error(1)
}

func (m *MockLedgerService) RecordTransaction(ctx context.Context, req model.TransactionCreateRequest) (*model.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerService) Summary(ctx context.Context, businessID uuid.UUID) (*model.BusinessSummary, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BusinessSummary), args.Error(1)
}

func (m *MockLedgerService) CustomerBalances(ctx context.Context, businessID uuid.UUID) ([]*model.CustomerBalance, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CustomerBalance), args.Error(1)
}

func (m *MockLedgerService) Statement(ctx context.Context, businessID, customerID uuid.UUID) (*model.Statement, error) {
	args := m.Called(ctx, businessID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Statement), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.PendingPayment, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PendingPayment), args.Error(1)
}

func (m *MockPaymentService) Approve(ctx context.Context, businessID, transactionID, approverID uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, businessID, transactionID, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockPaymentService) Reject(ctx context.Context, businessID, transactionID, rejecterID uuid.UUID, reason string) (*model.PendingPayment, error) {
	args := m.Called(ctx, businessID, transactionID, rejecterID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PendingPayment), args.Error(1)
}

type MockBusinessService struct {
	mock.Mock
}

func (m *MockBusinessService) Register(ctx context.Context, req model.RegisterBusinessRequest) (*model.Business, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

func (m *MockBusinessService) Get(ctx context.Context, businessID uuid.UUID) (*model.Business, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

func (m *MockBusinessService) UpdateProfile(ctx context.Context, businessID uuid.UUID, req model.UpdateProfileRequest) (*model.Business, error) {
	args := m.Called(ctx, businessID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

func (m *MockBusinessService) RegeneratePin(ctx context.Context, businessID uuid.UUID) (string, error) {
	args := m.Called(ctx, businessID)
	return args.String(0), args.Error(1)
}

func (m *MockBusinessService) AddCustomer(ctx context.Context, req model.AddCustomerRequest) (*model.CustomerBalance, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CustomerBalance), args.Error(1)
}

func (m *MockBusinessService) CheckIn(ctx context.Context, pin string) (*model.Business, error) {
	args := m.Called(ctx, pin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

type MockReminderService struct {
	mock.Mock
}

func (m *MockReminderService) Remind(ctx context.Context, businessID, customerID uuid.UUID) (*model.Reminder, error) {
	args := m.Called(ctx, businessID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Reminder), args.Error(1)
}

func (m *MockReminderService) RemindAll(ctx context.Context, businessID uuid.UUID) ([]*model.Reminder, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Reminder), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(path)
	if body != nil {
		req.SetBody(body)
	}
	// Init attaches a server so the ctx works as a context.Context
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func withParams(ctx *xhttp.RequestCtx, kv ...string) *xhttp.RequestCtx {
	for i := 0; i+1 < len(kv); i += 2 {
		ctx.SetUserValue(kv[i], kv[i+1])
	}
	return ctx
}

func withActor(ctx *xhttp.RequestCtx, actor uuid.UUID) *xhttp.RequestCtx {
	ctx.Request.Header.Set(HeaderActorID, actor.String())
	return ctx
}

func decodeError(t *testing.T, ctx *xhttp.RequestCtx) xhttp.ErrorBody {
	t.Helper()
	var body xhttp.ErrorBody
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	return body
}

func TestLedgerHandler_GetBalance(t *testing.T) {
	businessID, customerID := uuid.New(), uuid.New()

	t.Run("fixed two decimals", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)
		svc.On("GetBalance", mock.Anything, businessID, customerID).Return(model.MustAmount("400"), nil)

		ctx := withParams(setupTestContext("GET", "/balance", nil),
			"business_id", businessID.String(), "customer_id", customerID.String())
		h.GetBalance(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp balanceResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, "400.00", resp.Balance)
		assert.Equal(t, customerID, resp.CustomerID)
		svc.AssertExpectations(t)
	})

	t.Run("invalid business id", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)

		ctx := withParams(setupTestContext("GET", "/balance", nil),
			"business_id", "not-a-uuid", "customer_id", customerID.String())
		h.GetBalance(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Equal(t, "validation", decodeError(t, ctx).Kind)
		svc.AssertNotCalled(t, "GetBalance")
	})

	t.Run("storage failure hides details", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)
		svc.On("GetBalance", mock.Anything, businessID, customerID).
			Return(model.Zero(), apperr.Storage("transactions.list_for_pair", errors.New("dial tcp: refused")))

		ctx := withParams(setupTestContext("GET", "/balance", nil),
			"business_id", businessID.String(), "customer_id", customerID.String())
		h.GetBalance(ctx)

		assert.Equal(t, 500, ctx.Response.StatusCode())
		assert.Equal(t, "internal error", decodeError(t, ctx).Error)
	})
}

func TestLedgerHandler_Reconcile(t *testing.T) {
	svc := new(MockLedgerService)
	h := NewLedgerHandler(svc)
	businessID, customerID := uuid.New(), uuid.New()

	svc.On("ReconcilePair", mock.Anything, businessID, customerID, "api").Return(&model.ReconcileResult{
		BusinessID: businessID,
		CustomerID: customerID,
		Balance:    model.MustAmount("250.5"),
		Previous:   model.MustAmount("900"),
		Existed:    true,
		Drifted:    true,
	}, nil)

	ctx := withParams(setupTestContext("POST", "/reconcile", nil),
		"business_id", businessID.String(), "customer_id", customerID.String())
	h.Reconcile(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "250.50", resp["balance"])
	assert.Equal(t, "900.00", resp["previous_balance"])
	assert.Equal(t, true, resp["drifted"])
	assert.Equal(t, false, resp["created"])
}

func TestLedgerHandler_RecordTransaction(t *testing.T) {
	businessID, customerID, actor := uuid.New(), uuid.New(), uuid.New()
	body := []byte(`{"customer_id":"` + customerID.String() + `","amount":"500","transaction_type":"credit","notes":"rice"}`)

	t.Run("created", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)

		svc.On("RecordTransaction", mock.Anything, mock.MatchedBy(func(r model.TransactionCreateRequest) bool {
			return r.BusinessID == businessID && r.CustomerID == customerID && r.CreatedBy == actor &&
				r.Type == model.TransactionTypeCredit && r.Amount.Equal(model.MustAmount("500"))
		})).Return(&model.Transaction{ID: uuid.New(), BusinessID: businessID, CustomerID: customerID, Amount: model.MustAmount("500"), Type: model.TransactionTypeCredit}, nil)

		ctx := withActor(withParams(setupTestContext("POST", "/transactions", body), "business_id", businessID.String()), actor)
		h.RecordTransaction(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("missing actor", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)

		ctx := withParams(setupTestContext("POST", "/transactions", body), "business_id", businessID.String())
		h.RecordTransaction(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Contains(t, decodeError(t, ctx).Error, HeaderActorID)
		svc.AssertNotCalled(t, "RecordTransaction")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)

		ctx := withActor(withParams(setupTestContext("POST", "/transactions", []byte("{")), "business_id", businessID.String()), actor)
		h.RecordTransaction(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Contains(t, decodeError(t, ctx).Error, "invalid JSON")
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)
		svc.On("RecordTransaction", mock.Anything, mock.Anything).Return(nil, apperr.NotFound("record_transaction", "customer"))

		ctx := withActor(withParams(setupTestContext("POST", "/transactions", body), "business_id", businessID.String()), actor)
		h.RecordTransaction(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
		assert.Equal(t, "customer not found", decodeError(t, ctx).Error)
	})
}

func TestLedgerHandler_ListTransactions(t *testing.T) {
	businessID, customerID := uuid.New(), uuid.New()

	t.Run("filters from query", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)

		svc.On("ListTransactions", mock.Anything, mock.MatchedBy(func(f model.TransactionFilter) bool {
			return *f.BusinessID == businessID && *f.CustomerID == customerID &&
				*f.Type == model.TransactionTypePayment && f.Limit == 10 && f.Offset == 20 &&
				f.From.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) && f.To != nil
		})).Return([]*model.Transaction{{ID: uuid.New()}}, int64(31), nil)

		uri := "/transactions?customer_id=" + customerID.String() + "&type=payment&limit=10&offset=20&from=2024-05-01&to=2024-05-31T23:59:59Z"
		ctx := withParams(setupTestContext("GET", uri, nil), "business_id", businessID.String())
		h.ListTransactions(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp struct {
			Items []*model.Transaction `json:"items"`
			Total int64                `json:"total"`
		}
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Len(t, resp.Items, 1)
		assert.Equal(t, int64(31), resp.Total)
		svc.AssertExpectations(t)
	})

	t.Run("bad type", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)

		ctx := withParams(setupTestContext("GET", "/transactions?type=refund", nil), "business_id", businessID.String())
		h.ListTransactions(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "ListTransactions")
	})

	t.Run("bad time", func(t *testing.T) {
		svc := new(MockLedgerService)
		h := NewLedgerHandler(svc)

		ctx := withParams(setupTestContext("GET", "/transactions?from=yesterday", nil), "business_id", businessID.String())
		h.ListTransactions(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestLedgerHandler_SummaryAndCustomers(t *testing.T) {
	svc := new(MockLedgerService)
	h := NewLedgerHandler(svc)
	businessID := uuid.New()

	svc.On("Summary", mock.Anything, businessID).Return(&model.BusinessSummary{
		Business:         &model.Business{ID: businessID, Name: "Sharma Sons"},
		CustomerCount:    2,
		TotalOutstanding: model.MustAmount("1250.5"),
	}, nil)
	svc.On("CustomerBalances", mock.Anything, businessID).Return([]*model.CustomerBalance{
		{Customer: &model.Customer{ID: uuid.New(), Name: "Asha"}, Balance: model.MustAmount("10"), Cached: model.MustAmount("9.5")},
	}, nil)

	ctx := withParams(setupTestContext("GET", "/summary", nil), "business_id", businessID.String())
	h.GetSummary(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	var sum map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &sum))
	assert.Equal(t, "1250.50", sum["total_outstanding"])
	assert.Equal(t, float64(2), sum["customer_count"])

	ctx = withParams(setupTestContext("GET", "/customers", nil), "business_id", businessID.String())
	h.ListCustomerBalances(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	var list struct {
		Items []customerBalanceResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "10.00", list.Items[0].Balance)
	assert.Equal(t, "9.50", list.Items[0].CachedBalance)
}

func TestLedgerHandler_GetStatement(t *testing.T) {
	svc := new(MockLedgerService)
	h := NewLedgerHandler(svc)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	businessID, customerID := uuid.New(), uuid.New()

	svc.On("Statement", mock.Anything, businessID, customerID).Return(&model.Statement{
		Business: &model.Business{ID: businessID, Name: "Sharma Sons"},
		Customer: &model.Customer{ID: customerID, Name: "Asha Rao", Phone: "9876543210"},
		Transactions: []*model.Transaction{
			{ID: uuid.New(), Amount: model.MustAmount("500"), Type: model.TransactionTypeCredit, CreatedAt: h.now()},
		},
	}, nil)

	ctx := withParams(setupTestContext("GET", "/statement", nil),
		"business_id", businessID.String(), "customer_id", customerID.String())
	h.GetStatement(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", string(ctx.Response.Header.ContentType()))
	assert.Contains(t, string(ctx.Response.Header.Peek("Content-Disposition")), "Sharma_Sons_Asha_Rao_2024-05-01.xlsx")
	assert.NotEmpty(t, ctx.Response.Body())
}

func TestPaymentHandler_Approve(t *testing.T) {
	businessID, txID, actor := uuid.New(), uuid.New(), uuid.New()

	t.Run("approved", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandler(svc)
		svc.On("Approve", mock.Anything, businessID, txID, actor).
			Return(&model.Transaction{ID: txID, Type: model.TransactionTypePayment, Amount: model.MustAmount("300")}, nil)

		ctx := withActor(withParams(setupTestContext("POST", "/approve", nil),
			"business_id", businessID.String(), "transaction_id", txID.String()), actor)
		h.Approve(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var tx model.Transaction
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &tx))
		assert.Equal(t, txID, tx.ID)
		svc.AssertExpectations(t)
	})

	t.Run("already resolved", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandler(svc)
		svc.On("Approve", mock.Anything, businessID, txID, actor).
			Return(nil, apperr.Conflict("approve", "payment is already approved"))

		ctx := withActor(withParams(setupTestContext("POST", "/approve", nil),
			"business_id", businessID.String(), "transaction_id", txID.String()), actor)
		h.Approve(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
		assert.Equal(t, "conflict", decodeError(t, ctx).Kind)
	})
}

func TestPaymentHandler_Reject(t *testing.T) {
	businessID, txID, actor := uuid.New(), uuid.New(), uuid.New()

	t.Run("empty body uses default reason", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandler(svc)
		svc.On("Reject", mock.Anything, businessID, txID, actor, "").
			Return(&model.PendingPayment{TransactionID: txID, Status: model.PendingStatusRejected}, nil)

		ctx := withActor(withParams(setupTestContext("POST", "/reject", nil),
			"business_id", businessID.String(), "transaction_id", txID.String()), actor)
		h.Reject(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("reason from body", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandler(svc)
		svc.On("Reject", mock.Anything, businessID, txID, actor, "not received").
			Return(&model.PendingPayment{TransactionID: txID, Status: model.PendingStatusRejected}, nil)

		ctx := withActor(withParams(setupTestContext("POST", "/reject", []byte(`{"reason":"not received"}`)),
			"business_id", businessID.String(), "transaction_id", txID.String()), actor)
		h.Reject(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("other business", func(t *testing.T) {
		svc := new(MockPaymentService)
		h := NewPaymentHandler(svc)
		svc.On("Reject", mock.Anything, businessID, txID, actor, "").
			Return(nil, apperr.NotFound("reject", "pending payment"))

		ctx := withActor(withParams(setupTestContext("POST", "/reject", nil),
			"business_id", businessID.String(), "transaction_id", txID.String()), actor)
		h.Reject(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}

func TestBusinessHandler_AddCustomer(t *testing.T) {
	svc := new(MockBusinessService)
	h := NewBusinessHandler(svc, new(MockReminderService))
	businessID, actor := uuid.New(), uuid.New()

	svc.On("AddCustomer", mock.Anything, mock.MatchedBy(func(r model.AddCustomerRequest) bool {
		return r.BusinessID == businessID && r.CreatedBy == actor && r.Phone == "9876543210" &&
			r.OpeningBalance.Equal(model.MustAmount("-80"))
	})).Return(&model.CustomerBalance{
		Customer: &model.Customer{ID: uuid.New(), Name: "Ravi", Phone: "9876543210"},
		Balance:  model.MustAmount("-80"),
		Cached:   model.MustAmount("-80"),
	}, nil)

	body := []byte(`{"name":"Ravi","phone":"9876543210","opening_balance":-80}`)
	ctx := withActor(withParams(setupTestContext("POST", "/customers", body), "business_id", businessID.String()), actor)
	h.AddCustomer(ctx)

	assert.Equal(t, 201, ctx.Response.StatusCode())
	var resp customerBalanceResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "-80.00", resp.Balance)
	svc.AssertExpectations(t)
}

func TestBusinessHandler_CheckIn(t *testing.T) {
	svc := new(MockBusinessService)
	h := NewBusinessHandler(svc, new(MockReminderService))
	id := uuid.New()

	svc.On("CheckIn", mock.Anything, "4821").Return(&model.Business{ID: id, Name: "Sharma Sons", AccessPin: "4821"}, nil)
	svc.On("CheckIn", mock.Anything, "0000").Return(nil, apperr.NotFound("check_in", "business"))

	ctx := withParams(setupTestContext("GET", "/checkin/4821", nil), "pin", "4821")
	h.CheckIn(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "Sharma Sons", resp["name"])
	assert.NotContains(t, resp, "access_pin")

	ctx = withParams(setupTestContext("GET", "/checkin/0000", nil), "pin", "0000")
	h.CheckIn(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestBusinessHandler_RegeneratePin(t *testing.T) {
	svc := new(MockBusinessService)
	h := NewBusinessHandler(svc, new(MockReminderService))
	id := uuid.New()
	svc.On("RegeneratePin", mock.Anything, id).Return("", apperr.Conflict("regenerate_pin", "no free access pin"))

	ctx := withParams(setupTestContext("POST", "/pin", nil), "business_id", id.String())
	h.RegeneratePin(ctx)

	assert.Equal(t, 409, ctx.Response.StatusCode())
}

func TestBusinessHandler_Reminders(t *testing.T) {
	reminders := new(MockReminderService)
	h := NewBusinessHandler(new(MockBusinessService), reminders)
	businessID, customerID := uuid.New(), uuid.New()

	reminders.On("RemindAll", mock.Anything, businessID).Return([]*model.Reminder{
		{CustomerID: customerID, Link: "https://wa.me/919876543210?text=hi"},
	}, nil)
	reminders.On("Remind", mock.Anything, businessID, customerID).
		Return(nil, apperr.Validation("remind", "customer phone is not a valid mobile number"))

	ctx := withParams(setupTestContext("GET", "/reminders", nil), "business_id", businessID.String())
	h.RemindAll(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "wa.me")

	ctx = withParams(setupTestContext("GET", "/reminder", nil),
		"business_id", businessID.String(), "customer_id", customerID.String())
	h.Remind(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())
}

func TestHealthHandler(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	ctx := setupTestContext("GET", "/health", nil)
	NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": ok}).GetHealth(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = setupTestContext("GET", "/health", nil)
	NewHealthHandler(map[string]Pinger{"postgres": ok, "redis": down}).GetHealth(ctx)
	assert.Equal(t, 503, ctx.Response.StatusCode())
	var resp healthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["postgres"])
}

func TestRoutes(t *testing.T) {
	ledger := new(MockLedgerService)
	payments := new(MockPaymentService)
	businesses := new(MockBusinessService)

	r := xhttp.CreateDefaultRouter()
	g := xhttp.APIGroup(r)
	RegisterHealthRoutes(g, NewHealthHandler(nil))
	RegisterLedgerRoutes(g, NewLedgerHandler(ledger))
	RegisterPaymentRoutes(g, NewPaymentHandler(payments))
	RegisterBusinessRoutes(g, NewBusinessHandler(businesses, new(MockReminderService)))

	businessID, customerID := uuid.New(), uuid.New()
	ledger.On("GetBalance", mock.Anything, businessID, customerID).Return(model.MustAmount("12.3"), nil)
	payments.On("ListPending", mock.Anything, businessID).Return([]*model.PendingPayment{}, nil)
	businesses.On("Get", mock.Anything, businessID).Return(&model.Business{ID: businessID}, nil)

	for _, uri := range []string{
		"/api/v1/businesses/" + businessID.String() + "/customers/" + customerID.String() + "/balance",
		"/api/v1/businesses/" + businessID.String() + "/pending-payments",
		"/api/v1/businesses/" + businessID.String(),
		"/api/v1/health",
	} {
		ctx := setupTestContext("GET", uri, nil)
		r.Handler(ctx)
		assert.Equal(t, 200, ctx.Response.StatusCode(), uri)
	}

	ctx := setupTestContext("GET", "/api/v1/nowhere", nil)
	r.Handler(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())

	ctx = setupTestContext("DELETE", "/api/v1/health", nil)
	r.Handler(ctx)
	assert.Equal(t, 405, ctx.Response.StatusCode())
}
