package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/pkg/apperr"
)

type TransactionType string

const (
	// TransactionTypeCredit increases what the customer owes.
	TransactionTypeCredit TransactionType = "credit"
	// TransactionTypePayment decreases it.
	TransactionTypePayment TransactionType = "payment"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeCredit || t == TransactionTypePayment
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	BusinessID        uuid.UUID       `json:"business_id"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	Amount            Amount          `json:"amount"`
	Type              TransactionType `json:"transaction_type"`
	Notes             string          `json:"notes"`
	ReceiptImageURL   *string         `json:"receipt_image_url,omitempty"`
	PaymentMethod     *string         `json:"payment_method,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	CreatedBy         uuid.UUID       `json:"created_by"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	OriginalPendingID *uuid.UUID      `json:"original_pending_id,omitempty"`
}

// Delta is the signed effect of t on the customer's balance.
func (t *Transaction) Delta() Amount {
	if t.Type == TransactionTypePayment {
		return t.Amount.Neg()
	}
	return t.Amount
}

type TransactionCreateRequest struct {
	BusinessID      uuid.UUID       `json:"business_id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Amount          Amount          `json:"amount"`
	Type            TransactionType `json:"transaction_type"`
	Notes           string          `json:"notes"`
	ReceiptImageURL *string         `json:"receipt_image_url,omitempty"`
	PaymentMethod   *string         `json:"payment_method,omitempty"`
	CreatedBy       uuid.UUID       `json:"created_by"`
}

func (r *TransactionCreateRequest) Validate() error {
	if !ValidAmount(r.Amount) {
		return apperr.Validation("record_transaction", "amount must be a positive value with at most two decimals, got %s", r.Amount)
	}
	if !r.Type.Valid() {
		return apperr.Validation("record_transaction", "transaction type must be credit or payment, got %q", r.Type)
	}
	if r.BusinessID == uuid.Nil || r.CustomerID == uuid.Nil {
		return apperr.Validation("record_transaction", "business_id and customer_id are required")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	return nil
}

const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 1000
)

// TransactionFilter controls List queries. Results are newest first by created_at,
// then by id descending. Ids are v7 and sort by when they were minted, which is
// insertion order except for approved payments: they keep the id reserved at
// submission while created_at is the approval time, so among rows sharing a
// created_at an approved payment sorts by its submission.
type TransactionFilter struct {
	BusinessID *uuid.UUID
	CustomerID *uuid.UUID
	Type       *TransactionType
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func (f *TransactionFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultTransactionLimit
	}
	if f.Limit > MaxTransactionLimit {
		f.Limit = MaxTransactionLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Statement is the full history of one pair, oldest first.
type Statement struct {
	Business     *Business      `json:"business"`
	Customer     *Customer      `json:"customer"`
	Transactions []*Transaction `json:"transactions"`
}
