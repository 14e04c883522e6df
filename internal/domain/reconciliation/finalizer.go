package reconciliation

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quantities is what a distributor claims for one product
type Quantities struct {
	Sold    int64
	Damaged int64
}

// ProductInfo is the catalog data a report line is priced with
type ProductInfo struct {
	ID        uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
}

// Line is a finalized report row
type Line struct {
	ProductID       uuid.UUID
	ProductName     string
	Received        int64 // the availability the row was clamped against
	Sold            int64
	Damaged         int64
	Remaining       int64
	UnitPrice       decimal.Decimal
	Revenue         decimal.Decimal
	CarryOver       int64
	NewStock        int64
	AlreadyReported int64
	// Adjusted is set when the claimed quantities were cut down
	Adjusted bool
}

// Result is a finalized report body
type Result struct {
	Lines        []Line
	TotalRevenue decimal.Decimal
	TotalSold    int64
	TotalDamaged int64
}

// AdjustedLines counts rows whose claim was clamped
func (r Result) AdjustedLines() int {
	n := 0
	for _, line := range r.Lines {
		if line.Adjusted {
			n++
		}
	}
	return n
}

// Clamp applies the reporting law to one product:
// sold' = min(sold, available), damaged' = min(damaged, available - sold').
// Negative claims count as zero.
func Clamp(q Quantities, available int64) (sold, damaged, remaining int64) {
	available = max(available, 0)
	sold = min(max(q.Sold, 0), available)
	damaged = min(max(q.Damaged, 0), available-sold)
	remaining = available - sold - damaged
	return sold, damaged, remaining
}

// Finalize clamps every claim against its availability, prices it, and sums
// the totals. A product without an availability record or without catalog
// info has nothing available, so its row keeps zero quantities. Rows come out
// ordered by product name, then id.
func Finalize(claims map[uuid.UUID]Quantities, availability map[uuid.UUID]Availability, products map[uuid.UUID]ProductInfo) Result {
	result := Result{
		Lines:        make([]Line, 0, len(claims)),
		TotalRevenue: decimal.Zero,
	}

	for productID, claim := range claims {
		info, known := products[productID]
		avail := Availability{ProductID: productID}
		if known {
			avail = availability[productID]
		}
		price := info.UnitPrice
		if price.IsNegative() {
			price = decimal.Zero
		}

		sold, damaged, remaining := Clamp(claim, avail.Available)
		line := Line{
			ProductID:       productID,
			ProductName:     info.Name,
			Received:        avail.Available,
			Sold:            sold,
			Damaged:         damaged,
			Remaining:       remaining,
			UnitPrice:       price,
			Revenue:         price.Mul(decimal.NewFromInt(sold)),
			CarryOver:       avail.CarryOver,
			NewStock:        avail.Received,
			AlreadyReported: avail.AlreadyReported,
			Adjusted:        sold != claim.Sold || damaged != claim.Damaged,
		}

		result.Lines = append(result.Lines, line)
		result.TotalRevenue = result.TotalRevenue.Add(line.Revenue)
		result.TotalSold += sold
		result.TotalDamaged += damaged
	}

	sort.Slice(result.Lines, func(i, j int) bool {
		a, b := result.Lines[i], result.Lines[j]
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.ProductID.String() < b.ProductID.String()
	})
	return result
}
