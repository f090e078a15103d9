package customerapp

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/internal/model"
	"github.com/khatape/khata-ledger/pkg/apperr"
)

type submitPaymentRequest struct {
	Amount        model.Amount `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
	Notes         string       `json:"notes"`
}

type accountResponse struct {
	BusinessID   uuid.UUID `json:"business_id"`
	BusinessName string    `json:"business_name"`
	Balance      string    `json:"balance"`
}

type statusUpdateRequest struct {
	TransactionID   string       `json:"transaction_id"`
	Status          string       `json:"status"`
	BusinessID      uuid.UUID    `json:"business_id"`
	CustomerID      uuid.UUID    `json:"customer_id"`
	Amount          model.Amount `json:"amount"`
	Timestamp       time.Time    `json:"timestamp"`
	RejectionReason string       `json:"rejection_reason"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
}

func (h *Handler) ListAccounts(c *gin.Context) {
	customerID, ok := h.param(c, "customer_id")
	if !ok {
		return
	}
	accounts, err := h.ledger.Accounts(c.Request.Context(), customerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			BusinessID:   a.Business.ID,
			BusinessName: a.Business.Name,
			Balance:      a.Balance.StringFixed(model.AmountScale),
		})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

func (h *Handler) GetBalance(c *gin.Context) {
	customerID, ok := h.param(c, "customer_id")
	if !ok {
		return
	}
	businessID, ok := h.param(c, "business_id")
	if !ok {
		return
	}
	balance, err := h.ledger.GetBalance(c.Request.Context(), businessID, customerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"business_id": businessID,
		"customer_id": customerID,
		"balance":     balance.StringFixed(model.AmountScale),
	})
}

func (h *Handler) SubmitPayment(c *gin.Context) {
	customerID, ok := h.param(c, "customer_id")
	if !ok {
		return
	}
	businessID, ok := h.param(c, "business_id")
	if !ok {
		return
	}

	var req submitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	p, err := h.payments.SubmitPendingPayment(c.Request.Context(), model.PendingPaymentCreateRequest{
		BusinessID:    businessID,
		CustomerID:    customerID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info().
		Str("transaction_id", p.TransactionID.String()).
		Str("business_id", businessID.String()).
		Str("amount", p.Amount.StringFixed(model.AmountScale)).
		Msg("Pending payment submitted")
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPayments(c *gin.Context) {
	customerID, ok := h.param(c, "customer_id")
	if !ok {
		return
	}
	payments, err := h.payments.ListForCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	customerID, ok := h.param(c, "customer_id")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": h.inbox.List(customerID)})
}

// PaymentStatusUpdate receives approve/reject outcomes from the business API.
func (h *Handler) PaymentStatusUpdate(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid data"})
		return
	}
	txID, err := uuid.Parse(req.TransactionID)
	status := model.PendingStatus(req.Status)
	if err != nil || (status != model.PendingStatusApproved && status != model.PendingStatusRejected) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid data"})
		return
	}

	update := model.PaymentStatusUpdate{
		TransactionID:   txID,
		Status:          status,
		BusinessID:      req.BusinessID,
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		Timestamp:       req.Timestamp,
		RejectionReason: req.RejectionReason,
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now().UTC()
	}
	h.inbox.Add(update)

	h.log.Info().
		Str("transaction_id", txID.String()).
		Str("status", req.Status).
		Msg("Received payment status update")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status update received"})
}

func (h *Handler) param(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a uuid", "kind": string(apperr.KindValidation)})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": apperr.PublicMessage(err), "kind": string(apperr.KindOf(err))})
}
