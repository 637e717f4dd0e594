package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus status values. The transaction read model additionally exposes a
// classified category for arbitrary raw gateway statuses; see internal/status.
const (
	StatusPending   = "PENDING"
	StatusSuccess   = "SUCCESS"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// OrderStatus is the mutable settlement record, one-to-one with an Order via
// CollectID. CallbackReceived defaults to false at creation; only an explicit
// true means the gateway confirmed the outcome.
type OrderStatus struct {
	ID                primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	CollectID         primitive.ObjectID     `bson:"collect_id" json:"collect_id"`
	OrderAmount       float64                `bson:"order_amount" json:"order_amount"`
	TransactionAmount float64                `bson:"transaction_amount,omitempty" json:"transaction_amount,omitempty"`
	PaymentMode       string                 `bson:"payment_mode,omitempty" json:"payment_mode,omitempty"`
	PaymentDetails    map[string]interface{} `bson:"payment_details,omitempty" json:"payment_details,omitempty"`
	BankReference     string                 `bson:"bank_reference,omitempty" json:"bank_reference,omitempty"`
	PaymentMessage    string                 `bson:"payment_message,omitempty" json:"payment_message,omitempty"`
	Status            string                 `bson:"status" json:"status"`
	ErrorMessage      string                 `bson:"error_message,omitempty" json:"error_message,omitempty"`
	PaymentTime       *time.Time             `bson:"payment_time,omitempty" json:"payment_time,omitempty"`
	CallbackReceived  bool                   `bson:"callback_received" json:"callback_received"`
	CallbackTime      string                 `bson:"callback_time,omitempty" json:"callback_time,omitempty"`
	CreatedAt         time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time              `bson:"updated_at" json:"updated_at"`
}
