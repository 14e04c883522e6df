package shared

// ApprovalStatus is the administrator decision state shared by orders and
// weekly reports. Both start PENDING and move exactly once.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "PENDING"
	StatusApproved ApprovalStatus = "APPROVED"
	StatusRejected ApprovalStatus = "REJECTED"
)

func (s ApprovalStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s ApprovalStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether a decision may move s to target
func (s ApprovalStatus) CanTransitionTo(target ApprovalStatus) bool {
	return s == StatusPending && (target == StatusApproved || target == StatusRejected)
}

// IsFinal returns true once an administrator has decided
func (s ApprovalStatus) IsFinal() bool {
	return s == StatusApproved || s == StatusRejected
}
