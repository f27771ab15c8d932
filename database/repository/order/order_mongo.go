package orderRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace/database"
	"marketplace/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderDocument struct {
	ID          string               `bson:"id"`
	CustomerID  string               `bson:"customerId"`
	TotalAmount primitive.Decimal128 `bson:"totalAmount"`
	Status      models.OrderStatus   `bson:"status"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type itemDocument struct {
	ID          string               `bson:"id"`
	OrderID     string               `bson:"orderId"`
	Position    int                  `bson:"position"`
	ProductID   string               `bson:"productId"`
	ProductName string               `bson:"productName"`
	SellerID    string               `bson:"sellerId"`
	UnitPrice   primitive.Decimal128 `bson:"unitPrice"`
	Quantity    int                  `bson:"quantity"`
}

// MongoOrderRepo implements OrderRepository using MongoDB.
type MongoOrderRepo struct {
	orderColl *mongo.Collection
	itemColl  *mongo.Collection
	chainColl *mongo.Collection
}

// NewMongoOrderRepo creates an OrderRepository backed by db.
func NewMongoOrderRepo(db *mongo.Database) *MongoOrderRepo {
	return &MongoOrderRepo{
		orderColl: db.Collection(database.CollectionOrders),
		itemColl:  db.Collection(database.CollectionOrderItems),
		chainColl: db.Collection(database.CollectionOrderChains),
	}
}

// EnsureIndexes creates indexes for fields frequently used in queries.
func (r *MongoOrderRepo) EnsureIndexes(ctx context.Context) error {
	if _, err := r.orderColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	if _, err := r.itemColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}, {Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sellerId", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create order item indexes: %w", err)
	}
	return nil
}

func toOrderDocument(order *models.Order) (orderDocument, error) {
	total, err := database.ToDecimal128(order.TotalAmount)
	if err != nil {
		return orderDocument{}, err
	}
	return orderDocument{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		TotalAmount: total,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.CreatedAt,
	}, nil
}

func (d orderDocument) toModel() (models.Order, error) {
	total, err := database.FromDecimal128(d.TotalAmount)
	if err != nil {
		return models.Order{}, err
	}
	return models.Order{
		ID:          d.ID,
		CustomerID:  d.CustomerID,
		TotalAmount: total,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
	}, nil
}

func (d itemDocument) toModel() (models.LineItem, error) {
	price, err := database.FromDecimal128(d.UnitPrice)
	if err != nil {
		return models.LineItem{}, err
	}
	return models.LineItem{
		ID:          d.ID,
		OrderID:     d.OrderID,
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		SellerID:    d.SellerID,
		UnitPrice:   price,
		Quantity:    d.Quantity,
	}, nil
}

// CreateWithItems inserts the order, all line items and the chain record
// inside one transaction; readers see all of them or none.
func (r *MongoOrderRepo) CreateWithItems(ctx context.Context, order *models.Order, chain *models.OrderChain) error {
	orderDoc, err := toOrderDocument(order)
	if err != nil {
		return err
	}
	items := make([]interface{}, 0, len(order.Items))
	for i, item := range order.Items {
		price, err := database.ToDecimal128(item.UnitPrice)
		if err != nil {
			return err
		}
		items = append(items, itemDocument{
			ID:          item.ID,
			OrderID:     order.ID,
			Position:    i,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			SellerID:    item.SellerID,
			UnitPrice:   price,
			Quantity:    item.Quantity,
		})
	}

	client := r.orderColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnFn := func(sc mongo.SessionContext) error {
		if _, err := r.orderColl.InsertOne(sc, orderDoc); err != nil {
			return fmt.Errorf("insert order failed: %w", err)
		}
		if len(items) > 0 {
			if _, err := r.itemColl.InsertMany(sc, items); err != nil {
				return fmt.Errorf("insert order items failed: %w", err)
			}
		}
		if chain != nil {
			if _, err := r.chainColl.InsertOne(sc, chain); err != nil {
				return fmt.Errorf("insert order chain failed: %w", err)
			}
		}
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("order transaction failed: %w", err)
	}
	return nil
}

// GetByID loads an order and its items in creation order.
func (r *MongoOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var doc orderDocument
	if err := r.orderColl.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order %s: %w", id, err)
	}
	order, err := doc.toModel()
	if err != nil {
		return nil, err
	}

	cursor, err := r.itemColl.Find(ctx, bson.M{"orderId": id}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items of order %s: %w", id, err)
	}
	var itemDocs []itemDocument
	if err := cursor.All(ctx, &itemDocs); err != nil {
		return nil, fmt.Errorf("failed to decode items of order %s: %w", id, err)
	}
	for _, d := range itemDocs {
		item, err := d.toModel()
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	return &order, nil
}

// ListByCustomer returns orders sorted by creation time, newest first.
func (r *MongoOrderRepo) ListByCustomer(ctx context.Context, customerID string, filter ListFilter) ([]models.Order, error) {
	query := bson.M{"customerId": customerID}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: -1}})
	cursor, err := r.orderColl.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ListBySeller sums the seller's line items per order. The status filter
// applies to the order, not the items.
func (r *MongoOrderRepo) ListBySeller(ctx context.Context, sellerID string, filter ListFilter) ([]models.SellerOrder, error) {
	cursor, err := r.itemColl.Find(ctx, bson.M{"sellerId": sellerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list seller items: %w", err)
	}
	var itemDocs []itemDocument
	if err := cursor.All(ctx, &itemDocs); err != nil {
		return nil, fmt.Errorf("failed to decode seller items: %w", err)
	}
	if len(itemDocs) == 0 {
		return []models.SellerOrder{}, nil
	}

	subtotals := make(map[string]models.SellerOrder)
	orderIDs := make([]string, 0)
	for _, d := range itemDocs {
		item, err := d.toModel()
		if err != nil {
			return nil, err
		}
		so, seen := subtotals[item.OrderID]
		if !seen {
			orderIDs = append(orderIDs, item.OrderID)
			so.OrderID = item.OrderID
		}
		so.SellerTotalAmount = so.SellerTotalAmount.Add(item.Total())
		subtotals[item.OrderID] = so
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: -1}})
	query := bson.M{"id": bson.M{"$in": orderIDs}}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	orderCursor, err := r.orderColl.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seller orders: %w", err)
	}
	var orderDocs []orderDocument
	if err := orderCursor.All(ctx, &orderDocs); err != nil {
		return nil, fmt.Errorf("failed to decode seller orders: %w", err)
	}

	result := make([]models.SellerOrder, 0, len(orderDocs))
	for _, d := range orderDocs {
		so := subtotals[d.ID]
		so.CustomerID = d.CustomerID
		so.Status = d.Status
		so.CreatedAt = d.CreatedAt
		result = append(result, so)
	}
	return result, nil
}

// Delete removes an order together with its items.
func (r *MongoOrderRepo) Delete(ctx context.Context, id string) error {
	client := r.orderColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.orderColl.DeleteOne(sc, bson.M{"id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, ErrOrderNotFound
		}
		if _, err := r.itemColl.DeleteMany(sc, bson.M{"orderId": id}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	return nil
}
