package model

import "github.com/google/uuid"

type Reminder struct {
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone"`
	Balance      Amount    `json:"balance"`
	Message      string    `json:"message"`
	Link         string    `json:"whatsapp_link"`
}

// ReconcileJob asks the reconciler to recompute one pair's cached balance.
type ReconcileJob struct {
	BusinessID uuid.UUID `json:"business_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
}
