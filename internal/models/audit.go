package models

import "time"

// AuthEvent is one authentication or reset decision, stored in MongoDB.
type AuthEvent struct {
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Kind      string    `bson:"kind" json:"kind"`
	Strategy  string    `bson:"strategy,omitempty" json:"strategy,omitempty"`
	UserID    string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Subject   string    `bson:"subject,omitempty" json:"subject,omitempty"`
	Success   bool      `bson:"success" json:"success"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
}
