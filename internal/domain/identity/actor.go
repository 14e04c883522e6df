package identity

import "github.com/google/uuid"

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// DistributorID returns the distributor the actor files for, uuid.Nil for admins
func (a Actor) DistributorID() uuid.UUID {
	if a.Role != RoleDistributor {
		return uuid.Nil
	}
	return a.UserID
}

// Owns reports whether the actor is the given distributor
func (a Actor) Owns(distributorID uuid.UUID) bool {
	return a.Role == RoleDistributor && a.UserID == distributorID
}

// CanView reports whether the actor may read a distributor's records
func (a Actor) CanView(distributorID uuid.UUID) bool {
	return a.IsAdmin() || a.Owns(distributorID)
}
