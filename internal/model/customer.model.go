package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/pkg/apperr"
)

// Customer is shared across businesses and keyed naturally by phone.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerCredit is the cached balance of one business/customer pair.
type CustomerCredit struct {
	ID             uuid.UUID `json:"id"`
	BusinessID     uuid.UUID `json:"business_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	CurrentBalance Amount    `json:"current_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type AddCustomerRequest struct {
	BusinessID     uuid.UUID `json:"business_id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	OpeningBalance Amount    `json:"opening_balance"`
	CreatedBy      uuid.UUID `json:"created_by"`
}

func (r *AddCustomerRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.BusinessID == uuid.Nil {
		return apperr.Validation("add_customer", "business_id is required")
	}
	if r.Name == "" {
		return apperr.Validation("add_customer", "name is required")
	}
	if r.Phone == "" {
		return apperr.Validation("add_customer", "phone is required")
	}
	if !r.OpeningBalance.IsZero() && !ValidAmount(r.OpeningBalance.Abs()) {
		return apperr.Validation("add_customer", "opening balance %s is not a valid amount", r.OpeningBalance)
	}
	return nil
}

// CustomerBalance pairs a customer with the recomputed balance and the cached one.
type CustomerBalance struct {
	Customer *Customer `json:"customer"`
	Balance  Amount    `json:"balance"`
	Cached   Amount    `json:"cached_balance"`
}

func (b *CustomerBalance) InSync() bool {
	return b.Balance.Equal(b.Cached)
}

// CustomerAccount is one business as seen from a customer.
type CustomerAccount struct {
	Business *Business `json:"business"`
	Balance  Amount    `json:"balance"`
}

// ReconcileResult reports what a reconciliation found and wrote.
type ReconcileResult struct {
	BusinessID uuid.UUID `json:"business_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Balance    Amount    `json:"balance"`
	Previous   Amount    `json:"previous_balance"`
	Existed    bool      `json:"existed"`
	Drifted    bool      `json:"drifted"`
}
