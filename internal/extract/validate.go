package extract

import (
	"fmt"

	"IntakeRobot/internal/domain"
)

// DefaultThreshold is the confidence floor a record must clear before
// submission. At one-sixth granularity any single missing required field
// falls well below it.
const DefaultThreshold = 0.95

// LowConfidenceError reports a record rejected by the data-quality gate.
type LowConfidenceError struct {
	Confidence float64
	Threshold  float64
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("extraction confidence %.2f below threshold %.2f", e.Confidence, e.Threshold)
}

// Validator accepts or rejects candidate records against a global
// threshold. It is a pure gate: no side effects, no retry.
type Validator struct {
	Threshold float64
}

// NewValidator applies the default threshold when none is configured.
func NewValidator(threshold float64) Validator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Validator{Threshold: threshold}
}

// Check passes the record through unchanged when its confidence clears
// the threshold.
func (v Validator) Check(rec domain.PatientRecord) error {
	if rec.Confidence >= v.Threshold {
		return nil
	}
	return &LowConfidenceError{Confidence: rec.Confidence, Threshold: v.Threshold}
}
