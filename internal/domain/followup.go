package domain

// FollowUpType is the derived category of a follow-up
type FollowUpType string

const (
	FollowUpTypeOverdue             FollowUpType = "overdue"
	FollowUpTypeApproachingDeadline FollowUpType = "approaching_deadline"
)

// IsValid reports whether t is one of the permitted categories
func (t FollowUpType) IsValid() bool {
	return t == FollowUpTypeOverdue || t == FollowUpTypeApproachingDeadline
}

// FollowUpPriority ranks follow-ups for display
type FollowUpPriority string

const (
	FollowUpPriorityHigh   FollowUpPriority = "high"
	FollowUpPriorityMedium FollowUpPriority = "medium"
	FollowUpPriorityLow    FollowUpPriority = "low"
)

// IsValid reports whether p is a known priority
func (p FollowUpPriority) IsValid() bool {
	return p == FollowUpPriorityHigh || p == FollowUpPriorityMedium || p == FollowUpPriorityLow
}
