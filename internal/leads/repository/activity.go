package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	leaderrors "tripdesk/internal/leads/errors"
	"tripdesk/pkg/config"
	"tripdesk/pkg/model"
)

const (
	ActivityCollectionName = "LeadActivities"
)

// ActivityRepository persists the append-only audit trail. There are no
// update or delete operations on purpose.
type ActivityRepository interface {
	Create(ctx context.Context, activity *model.LeadActivity) error
	CreateMany(ctx context.Context, activities []*model.LeadActivity) error
	FindByLead(ctx context.Context, leadID string) ([]*model.LeadActivity, error)
}

type mongoActivityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoActivityRepository(cfg *config.Config) ActivityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoActivityRepository{
		cfg:        cfg,
		collection: db.Collection(ActivityCollectionName),
	}
}

func (r *mongoActivityRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoActivityRepository) Create(ctx context.Context, activity *model.LeadActivity) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	result, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		return fmt.Errorf("failed to record lead activity: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		activity.ID = oid.Hex()
	}

	return nil
}

func (r *mongoActivityRepository) CreateMany(ctx context.Context, activities []*model.LeadActivity) error {
	if len(activities) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(activities))
	for _, a := range activities {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		docs = append(docs, a)
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to record lead activities: %w", err)
	}

	return nil
}

func (r *mongoActivityRepository) FindByLead(ctx context.Context, leadID string) ([]*model.LeadActivity, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if _, err := primitive.ObjectIDFromHex(leadID); err != nil {
		return nil, fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, leadID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"lead_id": leadID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead activities: %w", err)
	}
	defer cursor.Close(ctx)

	var activities []*model.LeadActivity
	if err = cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode lead activities: %w", err)
	}

	return activities, nil
}
