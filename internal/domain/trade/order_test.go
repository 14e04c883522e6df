package trade

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/domain/shared/valueobject"
)

func money(s string) valueobject.Money {
	m, _ := valueobject.NewMoneyFromString(s)
	return m
}

func newTestOrder(t *testing.T, distributorID uuid.UUID) *Order {
	t.Helper()
	order, err := NewOrder(distributorID, time.Date(2024, time.June, 11, 9, 30, 0, 0, time.UTC), []ItemInput{
		{ProductID: uuid.New(), ProductName: "Kopi", UnitPrice: money("10"), Quantity: 20},
		{ProductID: uuid.New(), ProductName: "Teh", UnitPrice: money("2.5"), Quantity: 4},
	}, "  first order ")
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	distributor := uuid.New()
	order := newTestOrder(t, distributor)

	assert.Equal(t, shared.StatusPending, order.Status)
	assert.Equal(t, distributor, order.DistributorID)
	assert.Equal(t, "first order", order.Notes)
	assert.Regexp(t, `^ORD-20240611-[0-9A-F]{6}$`, order.OrderNumber)
	assert.Equal(t, time.Date(2024, time.June, 11, 9, 30, 0, 0, time.UTC), order.CreatedAt)
	assert.Equal(t, "210", order.TotalAmount.String())
	require.Len(t, order.Items, 2)
	assert.Equal(t, "200", order.Items[0].Amount.String())
	assert.Equal(t, order.ID, order.Items[1].OrderID)
	assert.Equal(t, int64(20), order.QuantityOf(order.Items[0].ProductID))
	assert.Equal(t, int64(0), order.QuantityOf(uuid.New()))
	assert.Len(t, order.GetDomainEvents(), 1)
}

func TestNewOrder_Validation(t *testing.T) {
	product := uuid.New()
	tests := []struct {
		name        string
		distributor uuid.UUID
		items       []ItemInput
		code        string
	}{
		{"no distributor", uuid.Nil, []ItemInput{{ProductID: product, Quantity: 1}}, "INVALID_DISTRIBUTOR"},
		{"no items", uuid.New(), nil, "EMPTY_ORDER"},
		{"zero quantity", uuid.New(), []ItemInput{{ProductID: product, Quantity: 0}}, "INVALID_QUANTITY"},
		{"nil product", uuid.New(), []ItemInput{{Quantity: 1}}, "INVALID_PRODUCT"},
		{"duplicate product", uuid.New(), []ItemInput{{ProductID: product, Quantity: 1}, {ProductID: product, Quantity: 2}}, "DUPLICATE_PRODUCT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder(tt.distributor, time.Now(), tt.items, "")
			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestOrder_Decisions(t *testing.T) {
	admin := uuid.New()

	t.Run("approve once", func(t *testing.T) {
		order := newTestOrder(t, uuid.New())
		order.ClearDomainEvents()
		require.NoError(t, order.Approve(admin))
		assert.Equal(t, shared.StatusApproved, order.Status)
		assert.Equal(t, admin, *order.DecidedBy)
		assert.True(t, order.HoldsStock())
		assert.Equal(t, EventTypeOrderApproved, order.GetDomainEvents()[0].EventType())

		assert.ErrorIs(t, order.Approve(admin), shared.ErrInvalidState)
		assert.ErrorIs(t, order.Reject(admin, "late"), shared.ErrInvalidState)
	})

	t.Run("reject keeps reason", func(t *testing.T) {
		order := newTestOrder(t, uuid.New())
		require.NoError(t, order.Reject(admin, " out of season "))
		assert.Equal(t, "out of season", order.RejectionReason)
		assert.False(t, order.HoldsStock())
		assert.ErrorIs(t, order.MarkReceived(), shared.ErrInvalidState)
	})
}

func TestOrder_MarkReceived(t *testing.T) {
	order := newTestOrder(t, uuid.New())
	require.NoError(t, order.MarkReceived())
	assert.True(t, order.Received)
	assert.NotNil(t, order.ReceivedAt)
	version := order.Version
	require.NoError(t, order.MarkReceived())
	assert.Equal(t, version, order.Version)
	assert.Equal(t, shared.StatusPending, order.Status)
}

func TestOrder_CheckDeletableBy(t *testing.T) {
	owner := uuid.New()
	ownerActor := identity.Actor{UserID: owner, Role: identity.RoleDistributor}
	stranger := identity.Actor{UserID: uuid.New(), Role: identity.RoleDistributor}
	admin := identity.Actor{UserID: uuid.New(), Role: identity.RoleAdmin}

	pending := newTestOrder(t, owner)
	assert.NoError(t, pending.CheckDeletableBy(ownerActor))
	assert.ErrorIs(t, pending.CheckDeletableBy(stranger), shared.ErrForbidden)
	assert.NoError(t, pending.CheckDeletableBy(admin))

	approved := newTestOrder(t, owner)
	require.NoError(t, approved.Approve(admin.UserID))
	assert.ErrorIs(t, approved.CheckDeletableBy(ownerActor), shared.ErrInvalidState)
	assert.NoError(t, approved.CheckDeletableBy(admin))
}
