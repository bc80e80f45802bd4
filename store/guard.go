package store

import (
	"context"
	"time"

	"print-order-system/models"
)

// guardLookback bounds how many recent same-owner same-total orders the
// guard inspects.
const guardLookback = 5

// DuplicateCheck is the guard's verdict for one submission.
type DuplicateCheck struct {
	Duplicate       bool   `json:"duplicate"`
	ExistingOrderID string `json:"existing_order_id,omitempty"`
}

// DuplicateGuard suppresses accidental resubmission by matching a new
// draft against the owner's recent identical-total orders. False
// negatives are acceptable, false positives are not: when the
// underlying query fails the guard fails open and reports no duplicate,
// returning the query error for logging only.
type DuplicateGuard struct {
	orders OrderStore
	now    func() time.Time
}

// NewDuplicateGuard builds a guard over the given order store.
func NewDuplicateGuard(orders OrderStore) *DuplicateGuard {
	return &DuplicateGuard{orders: orders, now: time.Now}
}

// Check reports whether an identical-total order from the same owner
// was created within the window. Duplicate settlement-failed orders are
// not a resubmission hazard; only orders still unsettled or already
// settled count.
func (g *DuplicateGuard) Check(ctx context.Context, customerID string, totalMinor int64, window time.Duration) (DuplicateCheck, error) {
	recent, err := g.orders.RecentOrdersByOwnerAndTotal(ctx, customerID, totalMinor, guardLookback)
	if err != nil {
		// Fail open: checkout availability beats suppression.
		return DuplicateCheck{}, err
	}

	cutoff := g.now().Add(-window)
	for _, o := range recent {
		if o.Settlement == models.SettlementFailed {
			continue
		}
		if o.CreatedAt.After(cutoff) {
			return DuplicateCheck{Duplicate: true, ExistingOrderID: o.ID}, nil
		}
	}
	return DuplicateCheck{}, nil
}
