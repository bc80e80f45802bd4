package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"print-order-system/models"
)

const (
	ordersCollection   = "orders"
	invoicesCollection = "invoices"
)

// Mongo implements OrderStore and InvoiceStore on a MongoDB database.
type Mongo struct {
	orders   *mongo.Collection
	invoices *mongo.Collection
}

// NewMongo wraps an existing database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		orders:   db.Collection(ordersCollection),
		invoices: db.Collection(invoicesCollection),
	}
}

// CreateOrder inserts the order, assigning a UUID id when absent.
func (m *Mongo) CreateOrder(ctx context.Context, o models.Order) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, err := m.orders.InsertOne(ctx, o); err != nil {
		return "", classify(fmt.Errorf("insert order: %w", err))
	}
	return o.ID, nil
}

// GetOrder fetches one order by id.
func (m *Mongo) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := m.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		return models.Order{}, classify(fmt.Errorf("get order %s: %w", id, err))
	}
	return o, nil
}

// UpdateOrder applies a partial $set update and advances the
// last-updated marker.
func (m *Mongo) UpdateOrder(ctx context.Context, id string, fields map[string]any) error {
	set := bson.M{FieldUpdatedAt: time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	res, err := m.orders.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return classify(fmt.Errorf("update order %s: %w", id, err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update order %s: %w", id, ErrNotFound)
	}
	return nil
}

// RecentOrdersByOwnerAndTotal runs the equality-filtered ordered query
// backing the duplicate guard and admin listings.
func (m *Mongo) RecentOrdersByOwnerAndTotal(ctx context.Context, customerID string, totalMinor int64, limit int) ([]models.Order, error) {
	filter := bson.M{
		"customer_id": customerID,
		"total_minor": totalMinor,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := m.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(fmt.Errorf("recent orders for %s: %w", customerID, err))
	}
	defer cur.Close(ctx)

	var out []models.Order
	if err := cur.All(ctx, &out); err != nil {
		return nil, classify(fmt.Errorf("recent orders for %s: %w", customerID, err))
	}
	return out, nil
}

// CreateInvoice inserts the invoice; an existing id is left untouched.
func (m *Mongo) CreateInvoice(ctx context.Context, inv models.Invoice) error {
	_, err := m.invoices.InsertOne(ctx, inv)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return classify(fmt.Errorf("insert invoice %s: %w", inv.ID, err))
	}
	return nil
}

// GetInvoice fetches one invoice by id.
func (m *Mongo) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	var inv models.Invoice
	err := m.invoices.FindOne(ctx, bson.M{"_id": id}).Decode(&inv)
	if err != nil {
		return models.Invoice{}, classify(fmt.Errorf("get invoice %s: %w", id, err))
	}
	return inv, nil
}

// AttachDelivery records the advisory delivery outcome on the invoice.
func (m *Mongo) AttachDelivery(ctx context.Context, id string, outcome models.DeliveryOutcome) error {
	res, err := m.invoices.UpdateByID(ctx, id, bson.M{"$set": bson.M{"delivery": outcome}})
	if err != nil {
		return classify(fmt.Errorf("attach delivery %s: %w", id, err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("attach delivery %s: %w", id, ErrNotFound)
	}
	return nil
}

// mongoUnauthorized is the server error code for missing privileges.
const mongoUnauthorized = 13

// classify folds driver errors into the gateway taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == mongoUnauthorized {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
