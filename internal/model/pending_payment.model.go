package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/pkg/apperr"
)

type PendingStatus string

const (
	PendingStatusPending  PendingStatus = "pending"
	PendingStatusApproved PendingStatus = "approved"
	PendingStatusRejected PendingStatus = "rejected"
)

const (
	DefaultPaymentMethod   = "PhonePe"
	DefaultRejectionReason = "No reason provided"
)

// PendingPayment is a customer-reported payment awaiting a business decision.
// TransactionID is reserved at submission and reused by the ledger entry on approval.
type PendingPayment struct {
	TransactionID   uuid.UUID     `json:"transaction_id"`
	BusinessID      uuid.UUID     `json:"business_id"`
	CustomerID      uuid.UUID     `json:"customer_id"`
	Amount          Amount        `json:"amount"`
	PaymentMethod   string        `json:"payment_method"`
	Notes           string        `json:"notes"`
	Status          PendingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	ApprovedAt      *time.Time    `json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID    `json:"approved_by,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
	RejectedBy      *uuid.UUID    `json:"rejected_by,omitempty"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
}

func (p *PendingPayment) IsPending() bool {
	return p.Status == PendingStatusPending
}

type PendingPaymentCreateRequest struct {
	BusinessID    uuid.UUID `json:"business_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Amount        Amount    `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	Notes         string    `json:"notes"`
}

func (r *PendingPaymentCreateRequest) Validate() error {
	if !ValidAmount(r.Amount) {
		return apperr.Validation("submit_pending_payment", "amount must be a positive value with at most two decimals, got %s", r.Amount)
	}
	if r.BusinessID == uuid.Nil || r.CustomerID == uuid.Nil {
		return apperr.Validation("submit_pending_payment", "business_id and customer_id are required")
	}
	r.PaymentMethod = strings.TrimSpace(r.PaymentMethod)
	if r.PaymentMethod == "" {
		r.PaymentMethod = DefaultPaymentMethod
	}
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

// Resolution is the terminal transition applied to a pending payment.
type Resolution struct {
	Status PendingStatus
	At     time.Time
	By     uuid.UUID
	Reason string
}

// PaymentStatusUpdate is posted to the customer app after approve or reject.
type PaymentStatusUpdate struct {
	TransactionID   uuid.UUID     `json:"transaction_id"`
	Status          PendingStatus `json:"status"`
	BusinessID      uuid.UUID     `json:"business_id"`
	CustomerID      uuid.UUID     `json:"customer_id"`
	Amount          Amount        `json:"amount"`
	Timestamp       time.Time     `json:"timestamp"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
}
