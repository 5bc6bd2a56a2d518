package model

// Stage represents a point in an application's lifecycle. Stages are ordered
// by priority for progress comparisons; Rejected and Withdrawn are terminal
// absorbing states outside the ">" ordering.
type Stage string

const (
	StageApplied            Stage = "Applied"
	StageInReview           Stage = "In Review"
	StageAssessment         Stage = "OA/Assessment"
	StagePhoneScreen        Stage = "Phone Screen"
	StageInterviewScheduled Stage = "Interview Scheduled"
	StageInterviewed        Stage = "Interviewed"
	StageOffer              Stage = "Offer"
	StageRejected           Stage = "Rejected"
	StageWithdrawn          Stage = "Withdrawn"
)

var stagePriority = map[Stage]int{
	StageApplied:            1,
	StageInReview:           2,
	StageAssessment:         3,
	StagePhoneScreen:        4,
	StageInterviewScheduled: 5,
	StageInterviewed:        6,
	StageOffer:              7,
	StageRejected:           8,
	StageWithdrawn:          9,
}

// AllStages returns the stages in lifecycle order.
func AllStages() []Stage {
	return []Stage{
		StageApplied,
		StageInReview,
		StageAssessment,
		StagePhoneScreen,
		StageInterviewScheduled,
		StageInterviewed,
		StageOffer,
		StageRejected,
		StageWithdrawn,
	}
}

// Priority returns the stage's ordinal for progress comparisons.
// Unknown stages return 0, which sorts below every real stage.
func (s Stage) Priority() int {
	return stagePriority[s]
}

// Valid reports whether s is one of the nine enumerated stages.
func (s Stage) Valid() bool {
	_, ok := stagePriority[s]
	return ok
}

// Terminal reports whether s is an absorbing terminal state.
func (s Stage) Terminal() bool {
	return s == StageRejected || s == StageWithdrawn
}
