package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a trustee account on the dashboard. HPassword holds the bcrypt hash
// and is never serialized back to clients.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	HPassword string             `bson:"password" json:"-"`
	Role      string             `bson:"role,omitempty" json:"role,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
