package model

// Stage is the lifecycle position of a campaign, derived from its status.
type Stage string

const (
	StageUnknown       Stage = "UNKNOWN"
	StageActive        Stage = "ACTIVE"
	StageTargetReached Stage = "TARGET_REACHED"
	StageFunded        Stage = "FUNDED"
	StageExpired       Stage = "EXPIRED"
)

// Terminal reports whether no further transition can happen.
func (s Stage) Terminal() bool {
	return s == StageFunded
}
