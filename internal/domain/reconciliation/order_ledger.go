package reconciliation

import (
	"github.com/google/uuid"

	"github.com/distrib/backend/internal/domain/shared"
)

// OrderLedger is a materialized slice of order history
type OrderLedger []OrderEntry

// ReceivedInCycle sums the quantity of productID on the distributor's
// APPROVED orders created inside window. PENDING and REJECTED orders and
// orders outside the window contribute nothing.
func (l OrderLedger) ReceivedInCycle(distributorID, productID uuid.UUID, window Window) int64 {
	var total int64
	for _, order := range l {
		if order.DistributorID != distributorID || order.Status != shared.StatusApproved {
			continue
		}
		if !window.Contains(order.CreatedAt) {
			continue
		}
		for _, line := range order.Lines {
			if line.ProductID == productID && line.Quantity > 0 {
				total += line.Quantity
			}
		}
	}
	return total
}
