package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	xhttp "github.com/khatape/khata-ledger/pkg/http"
)

type BusinessService interface {
	Register(ctx context.Context, req model.RegisterBusinessRequest) (*model.Business, error)
	Get(ctx context.Context, businessID uuid.UUID) (*model.Business, error)
	UpdateProfile(ctx context.Context, businessID uuid.UUID, req model.UpdateProfileRequest) (*model.Business, error)
	RegeneratePin(ctx context.Context, businessID uuid.UUID) (string, error)
	AddCustomer(ctx context.Context, req model.AddCustomerRequest) (*model.CustomerBalance, error)
	CheckIn(ctx context.Context, pin string) (*model.Business, error)
}

type ReminderService interface {
	Remind(ctx context.Context, businessID, customerID uuid.UUID) (*model.Reminder, error)
	RemindAll(ctx context.Context, businessID uuid.UUID) ([]*model.Reminder, error)
}

type BusinessHandler struct {
	businesses BusinessService
	reminders  ReminderService
}

func RegisterBusinessRoutes(e *router.Group, h *BusinessHandler) {
	e.POST("/businesses", h.Register)
	e.GET("/checkin/{pin}", h.CheckIn)

	e.GET("/businesses/{business_id}", h.GetBusiness)

	b := e.Group("/businesses/{business_id}")
	b.PUT("/profile", h.UpdateProfile)
	b.POST("/pin", h.RegeneratePin)
	b.POST("/customers", h.AddCustomer)
	b.GET("/reminders", h.RemindAll)
	b.GET("/customers/{customer_id}/reminder", h.Remind)
}

func NewBusinessHandler(businesses BusinessService, reminders ReminderService) *BusinessHandler {
	return &BusinessHandler{businesses: businesses, reminders: reminders}
}

type addCustomerRequest struct {
	Name           string       `json:"name"`
	Phone          string       `json:"phone"`
	OpeningBalance model.Amount `json:"opening_balance"`
}

type pinResponse struct {
	BusinessID uuid.UUID `json:"business_id"`
	AccessPin  string    `json:"access_pin"`
}

type checkInResponse struct {
	BusinessID  uuid.UUID `json:"business_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

func (h *BusinessHandler) Register(ctx *xhttp.RequestCtx) {
	var req model.RegisterBusinessRequest
	if err := readJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	b, err := h.businesses.Register(ctx, req)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, b)
}

func (h *BusinessHandler) GetBusiness(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	b, err := h.businesses.Get(ctx, businessID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, b)
}

func (h *BusinessHandler) UpdateProfile(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	var req model.UpdateProfileRequest
	if err := readJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	b, err := h.businesses.UpdateProfile(ctx, businessID, req)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, b)
}

func (h *BusinessHandler) RegeneratePin(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	pin, err := h.businesses.RegeneratePin(ctx, businessID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, pinResponse{BusinessID: businessID, AccessPin: pin})
}

func (h *BusinessHandler) AddCustomer(ctx *xhttp.RequestCtx) {
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
	var req addCustomerRequest
	if err := readJSON(ctx, &req); err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	cb, err := h.businesses.AddCustomer(ctx, model.AddCustomerRequest{
		BusinessID:     businessID,
		Name:           req.Name,
		Phone:          req.Phone,
		OpeningBalance: req.OpeningBalance,
		CreatedBy:      actor,
	})
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusCreated, customerBalanceResponse{
		Customer:      cb.Customer,
		Balance:       cb.Balance.StringFixed(model.AmountScale),
		CachedBalance: cb.Cached.StringFixed(model.AmountScale),
	})
}

func (h *BusinessHandler) CheckIn(ctx *xhttp.RequestCtx) {
	pin, _ := ctx.UserValue("pin").(string)
	b, err := h.businesses.CheckIn(ctx, pin)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	// the PIN itself is not echoed back
	xhttp.WriteJSON(ctx, xhttp.StatusOK, checkInResponse{BusinessID: b.ID, Name: b.Name, Description: b.Description})
}

func (h *BusinessHandler) Remind(ctx *xhttp.RequestCtx) {
	businessID, customerID, err := pairFromPath(ctx)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	r, err := h.reminders.Remind(ctx, businessID, customerID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, r)
}

func (h *BusinessHandler) RemindAll(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	rs, err := h.reminders.RemindAll(ctx, businessID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listResponse[*model.Reminder]{Items: rs, Total: int64(len(rs))})
}
