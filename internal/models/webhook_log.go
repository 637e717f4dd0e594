package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebhookLog processing states.
const (
	WebhookReceived  = "RECEIVED"
	WebhookProcessed = "PROCESSED"
	WebhookFailed    = "FAILED"
)

// WebhookLog is an append-only audit record of an inbound gateway
// notification. One row per call, whether or not it maps to a known order;
// only Status, ProcessedAt and ErrorMessage change after insert.
type WebhookLog struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Payload      map[string]interface{} `bson:"payload" json:"payload"`
	Source       string                 `bson:"source" json:"source"`
	Status       string                 `bson:"status" json:"status"`
	ProcessedAt  *time.Time             `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	ErrorMessage string                 `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt    time.Time              `bson:"created_at" json:"created_at"`
}
