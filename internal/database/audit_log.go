package database

import (
	"context"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	authEventsCollection = "auth_events"
	// AuthEventRetention is how long audit events are kept before MongoDB expires them.
	AuthEventRetention = 90 * 24 * time.Hour
)

// AuditLog stores authentication decisions in MongoDB.
type AuditLog struct {
	coll *mongo.Collection
}

func NewAuditLog(db *mongo.Database) *AuditLog {
	return &AuditLog{coll: db.Collection(authEventsCollection)}
}

// EnsureIndexes creates the TTL and lookup indexes for auth events.
func (a *AuditLog) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(AuthEventRetention.Seconds())),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

func (a *AuditLog) Record(ctx context.Context, event models.AuthEvent) error {
	_, err := a.coll.InsertOne(ctx, event)
	return err
}
