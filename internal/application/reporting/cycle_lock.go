package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CycleLocker serializes report filing for one distributor and cycle so
// that two submissions cannot both spend the same availability.
type CycleLocker interface {
	// Lock blocks until the cycle is held or the implementation's wait
	// elapses, in which case it returns shared.ErrCycleBusy. The returned
	// function releases the lock.
	Lock(ctx context.Context, distributorID uuid.UUID, cycleAnchor time.Time) (unlock func(), err error)
}

// NoopCycleLocker never blocks
type NoopCycleLocker struct{}

func (NoopCycleLocker) Lock(context.Context, uuid.UUID, time.Time) (func(), error) {
	return func() {}, nil
}

// CycleLockKey names the lock of one distributor's cycle
func CycleLockKey(distributorID uuid.UUID, cycleAnchor time.Time) string {
	return "distrib:cycle:" + distributorID.String() + ":" + cycleAnchor.UTC().Format("20060102T150405Z")
}
