package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StudentInfo is embedded in an Order; the id is the school's own student
// identifier, not a database reference.
type StudentInfo struct {
	Name  string `bson:"name" json:"name"`
	ID    string `bson:"id" json:"id"`
	Email string `bson:"email" json:"email"`
}

// Order identifies a requested school-fee payment. CustomOrderID is generated
// here and immutable; GatewayReferenceID is assigned by the payment gateway
// once the collect request is acknowledged and set at most once.
type Order struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchoolID           string             `bson:"school_id" json:"school_id"`
	TrusteeID          string             `bson:"trustee_id" json:"trustee_id"`
	StudentInfo        StudentInfo        `bson:"student_info" json:"student_info"`
	GatewayName        string             `bson:"gateway_name" json:"gateway_name"`
	CustomOrderID      string             `bson:"custom_order_id" json:"custom_order_id"`
	GatewayReferenceID string             `bson:"gateway_reference_id,omitempty" json:"gateway_reference_id,omitempty"`
	Description        string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}
