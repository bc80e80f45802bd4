package activities

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"print-order-system/models"
	"print-order-system/store"
)

func validDraft() models.OrderDraft {
	return models.OrderDraft{
		CustomerID:     "U1",
		CustomerName:   "U One",
		CustomerEmail:  "u1@example.com",
		Product:        "sticker",
		Quantity:       500,
		UnitPriceMinor: 3,
		Currency:       "INR",
		DeliveryAddress: models.Address{
			Line1: "42 Press Lane", City: "Pune", State: "MH", PostalCode: "411001",
		},
	}
}

func newOrderEnv(t *testing.T, orders store.OrderStore) (*testsuite.TestActivityEnvironment, *OrderActivities) {
	t.Helper()
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	act := NewOrderActivities(orders)
	env.RegisterActivity(act.CheckDuplicate)
	env.RegisterActivity(act.CreateOrder)
	env.RegisterActivity(act.GetOrder)
	env.RegisterActivity(act.Transition)
	env.RegisterActivity(act.RecordSettlement)
	env.RegisterActivity(act.ForceTransition)
	return env, act
}

func mustCreateOrder(t *testing.T, env *testsuite.TestActivityEnvironment, act *OrderActivities, draft models.OrderDraft) models.Order {
	t.Helper()
	val, err := env.ExecuteActivity(act.CreateOrder, draft)
	require.NoError(t, err)
	var order models.Order
	require.NoError(t, val.Get(&order))
	return order
}

func TestCreateOrderThenGet(t *testing.T) {
	mem := store.NewMemory()
	env, act := newOrderEnv(t, mem)

	order := mustCreateOrder(t, env, act, validDraft())
	require.NotEmpty(t, order.ID)
	assert.NotEmpty(t, order.TrackingCode)
	assert.Equal(t, int64(1500), order.TotalMinor)

	val, err := env.ExecuteActivity(act.GetOrder, order.ID)
	require.NoError(t, err)
	var got models.Order
	require.NoError(t, val.Get(&got))

	assert.Equal(t, models.SettlementUnsettled, got.Settlement)
	assert.Equal(t, models.FulfillmentPlaced, got.Fulfillment)
	assert.Equal(t, 20, got.Progress)
	assert.Equal(t, models.OriginStore, got.Origin)
}

func TestCreateOrderRejectsInvalidDraft(t *testing.T) {
	env, act := newOrderEnv(t, store.NewMemory())

	draft := validDraft()
	draft.Quantity = 0
	_, err := env.ExecuteActivity(act.CreateOrder, draft)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity must be positive")
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name          string
		setup         []models.FulfillmentStatus
		target        models.FulfillmentStatus
		wantErr       bool
		errorContains string
		wantProgress  int
	}{
		{
			name:         "Forward step",
			target:       models.FulfillmentAcknowledged,
			wantProgress: 20,
		},
		{
			name:          "Backward rejected",
			setup:         []models.FulfillmentStatus{models.FulfillmentAcknowledged, models.FulfillmentInProduction, models.FulfillmentShipped},
			target:        models.FulfillmentAcknowledged,
			wantErr:       true,
			errorContains: "not reachable",
		},
		{
			name:          "Skip rejected",
			target:        models.FulfillmentInProduction,
			wantErr:       true,
			errorContains: "not reachable",
		},
		{
			name:         "Same state is a no-op success",
			target:       models.FulfillmentPlaced,
			wantProgress: 20,
		},
		{
			name:         "Cancel from mid-pipeline",
			setup:        []models.FulfillmentStatus{models.FulfillmentAcknowledged, models.FulfillmentInProduction},
			target:       models.FulfillmentCancelled,
			wantProgress: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := store.NewMemory()
			env, act := newOrderEnv(t, mem)
			order := mustCreateOrder(t, env, act, validDraft())

			for _, step := range tt.setup {
				step := step
				_, err := env.ExecuteActivity(act.Transition, TransitionRequest{
					OrderID:     order.ID,
					Fulfillment: &step,
				})
				require.NoError(t, err)
			}

			target := tt.target
			val, err := env.ExecuteActivity(act.Transition, TransitionRequest{
				OrderID:     order.ID,
				Fulfillment: &target,
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			var got models.Order
			require.NoError(t, val.Get(&got))
			assert.Equal(t, tt.target, got.Fulfillment)
			assert.Equal(t, tt.wantProgress, got.Progress)
		})
	}
}

// Progress is recomputed from the fulfillment state on every accepted
// transition: an order in SHIPPED reads 80 regardless of history.
func TestTransitionProgressIsDerived(t *testing.T) {
	mem := store.NewMemory()
	env, act := newOrderEnv(t, mem)
	order := mustCreateOrder(t, env, act, validDraft())

	for _, step := range []models.FulfillmentStatus{
		models.FulfillmentAcknowledged,
		models.FulfillmentInProduction,
		models.FulfillmentShipped,
	} {
		step := step
		_, err := env.ExecuteActivity(act.Transition, TransitionRequest{OrderID: order.ID, Fulfillment: &step})
		require.NoError(t, err)
	}

	got, err := mem.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FulfillmentShipped, got.Fulfillment)
	assert.Equal(t, 80, got.Progress)
}

func TestRecordSettlement(t *testing.T) {
	t.Run("Settled outcome", func(t *testing.T) {
		mem := store.NewMemory()
		env, act := newOrderEnv(t, mem)
		order := mustCreateOrder(t, env, act, validDraft())

		val, err := env.ExecuteActivity(act.RecordSettlement, RecordSettlementRequest{
			OrderID: order.ID,
			Outcome: models.SettlementOutcome{
				State:           models.OutcomeSettled,
				Source:          models.SourceGatewayConfirmed,
				GatewayOrderRef: "gw_order_123",
				PaymentRef:      "pay_123",
				ResolvedAt:      time.Now(),
			},
		})
		require.NoError(t, err)
		var got models.Order
		require.NoError(t, val.Get(&got))

		assert.Equal(t, models.SettlementSettled, got.Settlement)
		assert.Equal(t, models.SourceGatewayConfirmed, got.SettlementSrc)
		assert.Equal(t, "pay_123", got.PaymentRef)
		assert.Equal(t, models.FulfillmentPlaced, got.Fulfillment, "settlement does not touch fulfillment")
	})

	t.Run("Declined outcome settles failed, fulfillment untouched", func(t *testing.T) {
		mem := store.NewMemory()
		env, act := newOrderEnv(t, mem)
		order := mustCreateOrder(t, env, act, validDraft())

		_, err := env.ExecuteActivity(act.RecordSettlement, RecordSettlementRequest{
			OrderID: order.ID,
			Outcome: models.SettlementOutcome{
				State:  models.OutcomeDeclined,
				Source: models.SourceGatewayConfirmed,
				Reason: "card declined",
			},
		})
		require.NoError(t, err)

		got, err := mem.GetOrder(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SettlementFailed, got.Settlement)
		assert.Equal(t, models.FulfillmentPlaced, got.Fulfillment)
		assert.Equal(t, 20, got.Progress)
	})

	t.Run("Re-applying the recorded outcome is a no-op", func(t *testing.T) {
		mem := store.NewMemory()
		env, act := newOrderEnv(t, mem)
		order := mustCreateOrder(t, env, act, validDraft())

		outcome := models.SettlementOutcome{State: models.OutcomeSettled, Source: models.SourceGatewayConfirmed}
		_, err := env.ExecuteActivity(act.RecordSettlement, RecordSettlementRequest{OrderID: order.ID, Outcome: outcome})
		require.NoError(t, err)
		_, err = env.ExecuteActivity(act.RecordSettlement, RecordSettlementRequest{OrderID: order.ID, Outcome: outcome})
		assert.NoError(t, err)
	})

	t.Run("Empty refs do not clobber earlier ones", func(t *testing.T) {
		mem := store.NewMemory()
		env, act := newOrderEnv(t, mem)
		order := mustCreateOrder(t, env, act, validDraft())
		require.NoError(t, mem.UpdateOrder(context.Background(), order.ID, map[string]any{
			store.FieldGatewayOrderRef: "gw_order_early",
		}))

		val, err := env.ExecuteActivity(act.RecordSettlement, RecordSettlementRequest{
			OrderID: order.ID,
			Outcome: models.SettlementOutcome{State: models.OutcomeTimedOut, Source: models.SourceFallback},
		})
		require.NoError(t, err)
		var got models.Order
		require.NoError(t, val.Get(&got))
		assert.Equal(t, "gw_order_early", got.GatewayOrderRef, "returned view matches the stored record")

		stored, err := mem.GetOrder(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, "gw_order_early", stored.GatewayOrderRef)
	})

	t.Run("Settled to failed rejected", func(t *testing.T) {
		mem := store.NewMemory()
		env, act := newOrderEnv(t, mem)
		order := mustCreateOrder(t, env, act, validDraft())

		_, err := env.ExecuteActivity(act.RecordSettlement, RecordSettlementRequest{
			OrderID: order.ID,
			Outcome: models.SettlementOutcome{State: models.OutcomeSettled, Source: models.SourceGatewayConfirmed},
		})
		require.NoError(t, err)

		_, err = env.ExecuteActivity(act.RecordSettlement, RecordSettlementRequest{
			OrderID: order.ID,
			Outcome: models.SettlementOutcome{State: models.OutcomeDeclined, Source: models.SourceGatewayConfirmed},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not reachable")
	})
}

// The administrative override bypasses the reachability table: a move
// the normal path refuses goes through, with progress still derived.
func TestForceTransition(t *testing.T) {
	mem := store.NewMemory()
	env, act := newOrderEnv(t, mem)
	order := mustCreateOrder(t, env, act, validDraft())

	val, err := env.ExecuteActivity(act.ForceTransition, ForceTransitionRequest{
		OrderID:     order.ID,
		Fulfillment: models.FulfillmentShipped,
		Actor:       "admin@printdesk.example",
		Reason:      "migrated from legacy tracker",
	})
	require.NoError(t, err)
	var got models.Order
	require.NoError(t, val.Get(&got))

	assert.Equal(t, models.FulfillmentShipped, got.Fulfillment)
	assert.Equal(t, 80, got.Progress)
}

func TestCheckDuplicate(t *testing.T) {
	t.Run("Fails open when the store is down", func(t *testing.T) {
		env, act := newOrderEnv(t, &unavailableStore{})

		val, err := env.ExecuteActivity(act.CheckDuplicate, DuplicateCheckRequest{
			CustomerID: "U1", TotalMinor: 1500, Window: 5 * time.Minute,
		})
		require.NoError(t, err, "guard failure must not fail checkout")
		var check store.DuplicateCheck
		require.NoError(t, val.Get(&check))
		assert.False(t, check.Duplicate)
	})

	t.Run("Reports recent identical submission", func(t *testing.T) {
		mem := store.NewMemory()
		env, act := newOrderEnv(t, mem)
		first := mustCreateOrder(t, env, act, validDraft())

		val, err := env.ExecuteActivity(act.CheckDuplicate, DuplicateCheckRequest{
			CustomerID: "U1", TotalMinor: 1500, Window: 5 * time.Minute,
		})
		require.NoError(t, err)
		var check store.DuplicateCheck
		require.NoError(t, val.Get(&check))
		assert.True(t, check.Duplicate)
		assert.Equal(t, first.ID, check.ExistingOrderID)
	})
}

// unavailableStore fails every operation with ErrUnavailable.
type unavailableStore struct{}

func (u *unavailableStore) CreateOrder(context.Context, models.Order) (string, error) {
	return "", store.ErrUnavailable
}

func (u *unavailableStore) GetOrder(context.Context, string) (models.Order, error) {
	return models.Order{}, store.ErrUnavailable
}

func (u *unavailableStore) UpdateOrder(context.Context, string, map[string]any) error {
	return store.ErrUnavailable
}

func (u *unavailableStore) RecentOrdersByOwnerAndTotal(context.Context, string, int64, int) ([]models.Order, error) {
	return nil, store.ErrUnavailable
}
