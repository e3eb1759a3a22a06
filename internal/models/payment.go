package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment statuses. A row only ever moves pending -> completed or
// pending -> failed; terminal statuses never change again.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// ValidPaymentStatus reports whether s is one of the three known statuses.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// Payment records one attempt to collect a donation through the gateway.
// TxRef is minted locally before the gateway is contacted; TransactionID is
// the gateway's own reference, captured at verification time.
type Payment struct {
	BaseModel
	UserID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	TxRef         string          `gorm:"size:100;uniqueIndex;not null" json:"tx_ref"`
	TransactionID string          `gorm:"size:100" json:"transaction_id,omitempty"`
	Status        string          `gorm:"size:20;default:pending" json:"status"`
}
