package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	leaderrors "tripdesk/internal/leads/errors"
	"tripdesk/pkg/config"
	mongotx "tripdesk/pkg/db/mongo"
	"tripdesk/pkg/model"
)

const (
	CollectionName = "Leads"
)

// LeadQuery is the filter surface for lead listings. Zero values mean
// "no constraint". Scoping by role happens in the service; the
// repository only translates the query to a Mongo filter.
type LeadQuery struct {
	Stage      model.Stage
	AgentID    string
	CustomerID string
	TripType   string
	Search     string
	ExcludeWon bool
}

type mongoLeadRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type LeadRepository interface {
	Create(ctx context.Context, lead *model.Lead) error
	FindByID(ctx context.Context, id string) (*model.Lead, error)
	Find(ctx context.Context, q LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error)
	Count(ctx context.Context, q LeadQuery) (int64, error)

	Update(ctx context.Context, id string, lead *model.Lead) error
	SetStage(ctx context.Context, id string, stage, previous model.Stage, at time.Time) error
	SetAgent(ctx context.Context, ids []string, agentID string, at time.Time) (int64, error)
	SetTravelers(ctx context.Context, id string, travelers []model.Traveler, at time.Time) error
	PushComment(ctx context.Context, id string, comment model.LeadComment) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error

	FindStale(ctx context.Context, cutoff time.Time) ([]*model.Lead, error)
	MarkStale(ctx context.Context, ids []string, at time.Time) (int64, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoLeadRepository(cfg *config.Config) LeadRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLeadRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context
// unchanged with a no-op cancel function, as wrapping a SessionContext breaks
// transaction semantics.
func (r *mongoLeadRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoLeadRepository) Create(ctx context.Context, lead *model.Lead) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	lead.CreatedAt = now
	lead.UpdatedAt = now
	lead.LastActivityAt = now
	lead.StageUpdatedAt = now

	result, err := r.collection.InsertOne(ctx, lead)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		lead.ID = oid.Hex()
	}

	return nil
}

func (r *mongoLeadRepository) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
	}

	var lead model.Lead
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&lead)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return &lead, nil
}

func (q LeadQuery) filter() bson.M {
	filter := bson.M{}

	if q.Stage != "" {
		filter["stage"] = q.Stage
	} else if q.ExcludeWon {
		filter["stage"] = bson.M{"$ne": model.StageWon}
	}
	if q.AgentID != "" {
		filter["agent_id"] = q.AgentID
	}
	if q.CustomerID != "" {
		filter["customer_id"] = q.CustomerID
	}
	if q.TripType != "" {
		filter["trip_type"] = q.TripType
	}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = []bson.M{
			{"destination": pattern},
			{"travelers.name": pattern},
			{"travelers.phone": pattern},
		}
	}

	return filter
}

func (r *mongoLeadRepository) Find(ctx context.Context, q LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	if paginate {
		opts = opts.
			SetLimit(int64(pageSize)).
			SetSkip(int64(page-1) * int64(pageSize))
	}

	cursor, err := r.collection.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer cursor.Close(ctx)

	var leads []*model.Lead
	if err = cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode leads: %w", err)
	}

	return leads, nil
}

func (r *mongoLeadRepository) Count(ctx context.Context, q LeadQuery) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, q.filter())
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return count, nil
}

func (r *mongoLeadRepository) Update(ctx context.Context, id string, lead *model.Lead) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"trip_type":                lead.TripType,
			"departure_city":           lead.DepartureCity,
			"destination":              lead.Destination,
			"travel_date":              lead.TravelDate,
			"duration":                 lead.Duration,
			"guests":                   lead.Guests,
			"budget":                   lead.Budget,
			"special_requests":         lead.SpecialRequests,
			"notes":                    lead.Notes,
			"source":                   lead.Source,
			"itinerary":                lead.Itinerary,
			"itinerary_pdf_url":        lead.ItineraryPDFURL,
			"documents":                lead.Documents,
			"travel_documents_pdf_url": lead.TravelDocumentsPDFURL,
			"inclusions":               lead.Inclusions,
			"exclusions":               lead.Exclusions,
			"payment_status":           lead.PaymentStatus,
			"payment_amount":           lead.PaymentAmount,
			"trip_cost":                lead.TripCost,
			"last_activity_at":         now,
			"updated_at":               now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoLeadRepository) SetStage(ctx context.Context, id string, stage, previous model.Stage, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"stage":            stage,
			"previous_stage":   previous,
			"stage_updated_at": at,
			"last_activity_at": at,
			"updated_at":       at,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to set lead stage: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoLeadRepository) SetAgent(ctx context.Context, ids []string, agentID string, at time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, objectID)
	}

	update := bson.M{
		"$set": bson.M{
			"agent_id":         agentID,
			"last_activity_at": at,
			"updated_at":       at,
		},
	}

	result, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to assign agent: %w", err)
	}

	return result.MatchedCount, nil
}

func (r *mongoLeadRepository) SetTravelers(ctx context.Context, id string, travelers []model.Traveler, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"travelers":        travelers,
			"last_activity_at": at,
			"updated_at":       at,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to set travelers: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoLeadRepository) PushComment(ctx context.Context, id string, comment model.LeadComment) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$push": bson.M{"comments": comment},
		"$set": bson.M{
			"last_activity_at": comment.CreatedAt,
			"updated_at":       comment.CreatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to push comment: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoLeadRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"last_activity_at": at,
			"updated_at":       at,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to refresh lead activity: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
	}

	return nil
}

func (r *mongoLeadRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
	}

	return nil
}

// FindStale returns active pipeline leads whose last activity predates
// the cutoff. Terminal stages (won, lost, stale) are never swept.
func (r *mongoLeadRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*model.Lead, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"stage":            bson.M{"$nin": []model.Stage{model.StageWon, model.StageLost, model.StageStale}},
		"last_activity_at": bson.M{"$lt": cutoff},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale leads: %w", err)
	}
	defer cursor.Close(ctx)

	var leads []*model.Lead
	if err = cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode stale leads: %w", err)
	}

	return leads, nil
}

// MarkStale flips the given leads to the stale stage. The pipeline-style
// update captures each document's current stage as previous_stage so a
// later recovery can restore it.
func (r *mongoLeadRepository) MarkStale(ctx context.Context, ids []string, at time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", leaderrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, objectID)
	}

	filter := bson.M{
		"_id":   bson.M{"$in": objectIDs},
		"stage": bson.M{"$nin": []model.Stage{model.StageWon, model.StageLost, model.StageStale}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"previous_stage":   "$stage",
			"stage":            model.StageStale,
			"stage_updated_at": at,
			"updated_at":       at,
		}}},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark leads stale: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoLeadRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
