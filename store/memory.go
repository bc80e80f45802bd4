package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"print-order-system/models"
)

// Memory is an in-process OrderStore and InvoiceStore used for local
// runs and tests.
type Memory struct {
	mu       sync.RWMutex
	orders   map[string]models.Order
	invoices map[string]models.Invoice
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		orders:   make(map[string]models.Order),
		invoices: make(map[string]models.Invoice),
	}
}

// CreateOrder stores the order, assigning a UUID id when absent.
func (m *Memory) CreateOrder(_ context.Context, o models.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, exists := m.orders[o.ID]; exists {
		return "", fmt.Errorf("order %s already exists", o.ID)
	}
	m.orders[o.ID] = o
	return o.ID, nil
}

// GetOrder returns the order or ErrNotFound.
func (m *Memory) GetOrder(_ context.Context, id string) (models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return o, nil
}

// UpdateOrder applies a partial field update and advances the
// last-updated marker.
func (m *Memory) UpdateOrder(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err := applyOrderFields(&o, fields); err != nil {
		return err
	}
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	return nil
}

// RecentOrdersByOwnerAndTotal filters by owner and total, newest first.
func (m *Memory) RecentOrdersByOwnerAndTotal(_ context.Context, customerID string, totalMinor int64, limit int) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID && o.TotalMinor == totalMinor {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateInvoice stores the invoice; an existing id is left untouched.
func (m *Memory) CreateInvoice(_ context.Context, inv models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.invoices[inv.ID]; exists {
		return nil
	}
	m.invoices[inv.ID] = inv
	return nil
}

// GetInvoice returns the invoice or ErrNotFound.
func (m *Memory) GetInvoice(_ context.Context, id string) (models.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invoices[id]
	if !ok {
		return models.Invoice{}, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	return inv, nil
}

// AttachDelivery records the advisory delivery outcome.
func (m *Memory) AttachDelivery(_ context.Context, id string, outcome models.DeliveryOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	inv.Delivery = &outcome
	m.invoices[id] = inv
	return nil
}

// InvoiceCount reports the number of stored invoices. Test helper.
func (m *Memory) InvoiceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.invoices)
}

func applyOrderFields(o *models.Order, fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case FieldSettlement:
			o.Settlement = toSettlement(v)
		case FieldFulfillment:
			o.Fulfillment = toFulfillment(v)
		case FieldProgress:
			p, ok := v.(int)
			if !ok {
				return fmt.Errorf("field %s: expected int, got %T", k, v)
			}
			o.Progress = p
		case FieldGatewayOrderRef:
			o.GatewayOrderRef = fmt.Sprint(v)
		case FieldPaymentRef:
			o.PaymentRef = fmt.Sprint(v)
		case FieldSettlementSrc:
			o.SettlementSrc = models.OutcomeSource(fmt.Sprint(v))
		case FieldInvoiceID:
			o.InvoiceID = fmt.Sprint(v)
		case FieldUpdatedAt:
			// Set below on every write.
		default:
			return fmt.Errorf("unknown order field %q", k)
		}
	}
	return nil
}

func toSettlement(v any) models.SettlementStatus {
	if s, ok := v.(models.SettlementStatus); ok {
		return s
	}
	return models.SettlementStatus(fmt.Sprint(v))
}

func toFulfillment(v any) models.FulfillmentStatus {
	if s, ok := v.(models.FulfillmentStatus); ok {
		return s
	}
	return models.FulfillmentStatus(fmt.Sprint(v))
}
