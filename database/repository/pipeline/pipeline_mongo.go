package pipelineRepo

import (
	"context"
	"fmt"
	"time"

	"marketplace/database"
	"marketplace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoChainRepo implements ChainRepository using MongoDB.
type MongoChainRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoChainRepo(db *mongo.Database) *MongoChainRepo {
	return &MongoChainRepo{
		coll: db.Collection(database.CollectionOrderChains),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates indexes for fields frequently used in queries.
func (r *MongoChainRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "stages.invoice.status", Value: 1}, {Key: "stages.email.status", Value: 1}, {Key: "updatedAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create order chain indexes: %w", err)
	}
	return nil
}

func stageField(stage models.Stage, field string) string {
	return "stages." + string(stage) + "." + field
}

func (r *MongoChainRepo) Get(ctx context.Context, orderID string) (*models.OrderChain, error) {
	var chain models.OrderChain
	if err := r.coll.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&chain); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrChainNotFound
		}
		return nil, fmt.Errorf("failed to fetch chain of order %s: %w", orderID, err)
	}
	return &chain, nil
}

func (r *MongoChainRepo) StartAttempt(ctx context.Context, orderID string, stage models.Stage) error {
	now := r.now()
	update := bson.M{
		"$set": bson.M{
			stageField(stage, "status"):    models.StageRunning,
			stageField(stage, "updatedAt"): now,
			"updatedAt":                    now,
		},
		"$inc": bson.M{stageField(stage, "attempts"): 1},
	}
	return r.update(ctx, orderID, update)
}

func (r *MongoChainRepo) Finish(ctx context.Context, orderID string, stage models.Stage, status models.StageStatus, lastErr string) error {
	now := r.now()
	update := bson.M{
		"$set": bson.M{
			stageField(stage, "status"):    status,
			stageField(stage, "lastError"): lastErr,
			stageField(stage, "updatedAt"): now,
			"updatedAt":                    now,
		},
	}
	return r.update(ctx, orderID, update)
}

func (r *MongoChainRepo) Touch(ctx context.Context, orderID string) error {
	return r.update(ctx, orderID, bson.M{"$set": bson.M{"updatedAt": r.now()}})
}

func (r *MongoChainRepo) update(ctx context.Context, orderID string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"orderId": orderID}, update)
	if err != nil {
		return fmt.Errorf("failed to update chain of order %s: %w", orderID, err)
	}
	if res.MatchedCount == 0 {
		return ErrChainNotFound
	}
	return nil
}

// ListStalled finds chains whose invoice stage, or whose email stage after a
// successful invoice, has been pending since before cutoff.
func (r *MongoChainRepo) ListStalled(ctx context.Context, cutoff time.Time, limit int64) ([]models.OrderChain, error) {
	filter := bson.M{
		"updatedAt": bson.M{"$lt": cutoff},
		"$or": bson.A{
			bson.M{"stages.invoice.status": models.StagePending},
			bson.M{
				"stages.invoice.status": models.StageSucceeded,
				"stages.email.status":   models.StagePending,
			},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalled chains: %w", err)
	}
	var chains []models.OrderChain
	if err := cursor.All(ctx, &chains); err != nil {
		return nil, fmt.Errorf("failed to decode stalled chains: %w", err)
	}
	return chains, nil
}
