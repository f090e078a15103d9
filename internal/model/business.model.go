package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khatape/khata-ledger/pkg/apperr"
)

type Business struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AccessPin   string    `json:"access_pin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RegisterBusinessRequest struct {
	OwnerName    string `json:"owner_name"`
	Phone        string `json:"phone"`
	BusinessName string `json:"business_name"`
	Description  string `json:"description"`
}

func (r *RegisterBusinessRequest) Validate() error {
	r.OwnerName = strings.TrimSpace(r.OwnerName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.BusinessName = strings.TrimSpace(r.BusinessName)
	if r.Phone == "" {
		return apperr.Validation("register_business", "phone is required")
	}
	if r.BusinessName == "" {
		return apperr.Validation("register_business", "business name is required")
	}
	if r.OwnerName == "" {
		r.OwnerName = r.BusinessName
	}
	return nil
}

type UpdateProfileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *UpdateProfileRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Name == "" {
		return apperr.Validation("update_profile", "name is required")
	}
	return nil
}

// BusinessSummary is the dashboard view of one business.
type BusinessSummary struct {
	Business           *Business      `json:"business"`
	CustomerCount      int            `json:"customer_count"`
	TotalOutstanding   Amount         `json:"total_outstanding"`
	RecentTransactions []*Transaction `json:"recent_transactions"`
}
