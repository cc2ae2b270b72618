package archive

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"IntakeRobot/internal/domain"
)

var (
	unsafeExpr   = regexp.MustCompile(`[^A-Za-z0-9]+`)
	nonDigitExpr = regexp.MustCompile(`\D`)
)

// PatientFilename derives the canonical archival name
// LastName_FirstName_MMDDYYYY.pdf for a validated record. Deterministic
// and pure; collisions within a run are left to folder-store policy.
func PatientFilename(rec domain.PatientRecord) string {
	last := sanitize(rec.LastName)
	if last == "" {
		last = "Unknown"
	}
	first := sanitize(rec.FirstName)
	if first == "" {
		first = "Patient"
	}
	return fmt.Sprintf("%s_%s_%s.pdf", last, first, dobDigits(rec.DateOfBirth))
}

// ExceptionFilename prefixes the original basename with a timestamp so
// repeated failures of same-named documents never collide.
func ExceptionFilename(now time.Time, originalPath string) string {
	return now.Format("20060102_150405") + "_" + filepath.Base(originalPath)
}

func sanitize(value string) string {
	return strings.Trim(unsafeExpr.ReplaceAllString(value, "_"), "_")
}

func dobDigits(dob string) string {
	digits := nonDigitExpr.ReplaceAllString(dob, "")
	if digits == "" {
		return "01011970"
	}
	return digits
}
