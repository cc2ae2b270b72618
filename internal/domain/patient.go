package domain

import "fmt"

// Origin names the channel an intake document arrived through.
type Origin string

const (
	OriginEmail  Origin = "email"
	OriginDrive  Origin = "drive"
	OriginSample Origin = "sample"
)

// IntakeDocument is a queued reference to one source PDF awaiting processing.
type IntakeDocument struct {
	Path        string
	SourceLabel string
	Origin      Origin
	ExternalID  string
}

// DedupKey identifies a document within a single run; no two queued
// documents may share it.
func (d IntakeDocument) DedupKey() string {
	return d.SourceLabel + "|" + d.Path
}

// PatientRecord is the structured result of extracting one intake PDF.
// Confidence reflects the extractor's own certainty and is computed
// independently of any validation threshold.
type PatientRecord struct {
	FirstName          string
	LastName           string
	DateOfBirth        string // normalized MM/DD/YYYY
	Phone              string // normalized bare digits
	Email              string
	InsuranceName      string
	MemberID           string
	ReferringPhysician string // optional; absence is valid
	Confidence         float64
	SourceFilePath     string
}

// DocumentState tracks a document through the per-run state machine.
type DocumentState string

const (
	StateQueued     DocumentState = "queued"
	StateExtracting DocumentState = "extracting"
	StateValidating DocumentState = "validating"
	StateSubmitting DocumentState = "submitting"
	StateArchived   DocumentState = "archived"
	StateExcepted   DocumentState = "excepted"
)

// RunStats tallies terminal outcomes for one pipeline execution. It is
// owned by the orchestrator and never shared across runs.
type RunStats struct {
	Processed int
	Failed    int
}

// Summary renders the final run tally for logs and alerts.
func (s RunStats) Summary() string {
	return fmt.Sprintf("processed=%d failed=%d", s.Processed, s.Failed)
}
