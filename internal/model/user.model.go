package model

import (
	"time"

	"github.com/google/uuid"
)

type UserType string

const (
	UserTypeBusiness UserType = "business"
	UserTypeCustomer UserType = "customer"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Type      UserType  `json:"user_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
