package invoiceRepo

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

type invoiceDocument struct {
	OrderID     string    `bson:"orderId"`
	BlobName    string    `bson:"blobName"`
	Size        int64     `bson:"size"`
	ContentType string    `bson:"contentType"`
	CreatedAt   time.Time `bson:"createdAt"`
}

// MongoInvoiceRepo implements InvoiceRepository using MongoDB.
type MongoInvoiceRepo struct {
	coll *mongo.Collection
}

func NewMongoInvoiceRepo(db *mongo.Database) *MongoInvoiceRepo {
	return &MongoInvoiceRepo{coll: db.Collection(database.CollectionInvoices)}
}

// EnsureIndexes enforces at most one invoice per order.
func (r *MongoInvoiceRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create invoice indexes: %w", err)
	}
	return nil
}

func (r *MongoInvoiceRepo) CreateIfAbsent(ctx context.Context, inv *models.Invoice) (bool, error) {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	doc := invoiceDocument{
		OrderID:     inv.OrderID,
		BlobName:    inv.BlobName,
		Size:        inv.Size,
		ContentType: inv.ContentType,
		CreatedAt:   inv.CreatedAt,
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"orderId": inv.OrderID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts can race on the unique index; the loser simply did not create.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create invoice for order %s: %w", inv.OrderID, err)
	}
	return res.UpsertedCount == 1, nil
}

func (r *MongoInvoiceRepo) GetByOrderID(ctx context.Context, orderID string) (*models.Invoice, error) {
	var doc invoiceDocument
	if err := r.coll.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to fetch invoice for order %s: %w", orderID, err)
	}
	return &models.Invoice{
		OrderID:     doc.OrderID,
		BlobName:    doc.BlobName,
		Size:        doc.Size,
		ContentType: doc.ContentType,
		CreatedAt:   doc.CreatedAt,
	}, nil
}
