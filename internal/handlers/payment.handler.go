package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	xhttp "github.com/khatape/khata-ledger/pkg/http"
)

type PaymentService interface {
	ListPending(ctx context.Context, businessID uuid.UUID) ([]*model.PendingPayment, error)
	Approve(ctx context.Context, businessID, transactionID, approverID uuid.UUID) (*model.Transaction, error)
	Reject(ctx context.Context, businessID, transactionID, rejecterID uuid.UUID, reason string) (*model.PendingPayment, error)
}

type PaymentHandler struct {
	payments PaymentService
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler) {
	e.GET("/businesses/{business_id}/pending-payments", h.ListPending)

	p := e.Group("/businesses/{business_id}/pending-payments")
	p.POST("/{transaction_id}/approve", h.Approve)
	p.POST("/{transaction_id}/reject", h.Reject)
}

func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *PaymentHandler) ListPending(ctx *xhttp.RequestCtx) {
	businessID, err := pathUUID(ctx, "business_id")
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	pending, err := h.payments.ListPending(ctx, businessID)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, listResponse[*model.PendingPayment]{Items: pending, Total: int64(len(pending))})
}

func (h *PaymentHandler) Approve(ctx *xhttp.RequestCtx) {
	businessID, transactionID, actor, err := resolutionParams(ctx)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	tx, err := h.payments.Approve(ctx, businessID, transactionID, actor)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, tx)
}

func (h *PaymentHandler) Reject(ctx *xhttp.RequestCtx) {
	businessID, transactionID, actor, err := resolutionParams(ctx)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	// an empty body falls back to the default reason
	var req rejectRequest
	if len(ctx.PostBody()) > 0 {
		if err := readJSON(ctx, &req); err != nil {
			xhttp.WriteError(ctx, err)
			return
		}
	}
	p, err := h.payments.Reject(ctx, businessID, transactionID, actor, req.Reason)
	if err != nil {
		xhttp.WriteError(ctx, err)
		return
	}
	xhttp.WriteJSON(ctx, xhttp.StatusOK, p)
}

func resolutionParams(ctx *xhttp.RequestCtx) (businessID, transactionID, actor uuid.UUID, err error) {
	if businessID, err = pathUUID(ctx, "business_id"); err != nil {
		return
	}
	if transactionID, err = pathUUID(ctx, "transaction_id"); err != nil {
		return
	}
	actor, err = actorID(ctx)
	return
}
