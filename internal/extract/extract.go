package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"IntakeRobot/internal/domain"
)

// requiredFields is the number of fields whose absence penalizes
// confidence: name (first and last together), DOB, phone, email,
// insurance, member ID. The referring physician is optional and never
// penalized.
const requiredFields = 6

// ExtractionError reports a document with no recoverable text at all.
type ExtractionError struct {
	Path   string
	Reason string
}

func (e *ExtractionError) Error() string {
	if e.Path == "" {
		return "extraction failed: " + e.Reason
	}
	return fmt.Sprintf("extraction failed for %s: %s", e.Path, e.Reason)
}

var (
	firstNameExpr = regexp.MustCompile(`(?im)^\s*first name:\s*(.+)$`)
	lastNameExpr  = regexp.MustCompile(`(?im)^\s*last name:\s*(.+)$`)
	nameExpr      = regexp.MustCompile(`(?im)^\s*name:\s*(.+)$`)
	dobExpr       = regexp.MustCompile(`(?im)^\s*(?:dob|date of birth):\s*(.+)$`)
	phoneExpr     = regexp.MustCompile(`\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
	emailExpr     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	insuranceExpr = regexp.MustCompile(`(?im)^\s*insurance:\s*(.+)$`)
	memberIDExpr  = regexp.MustCompile(`(?im)^\s*member id:\s*(.+)$`)
	physicianExpr = regexp.MustCompile(`(?im)^\s*referring physician:\s*(.+)$`)

	nonDigitExpr = regexp.MustCompile(`\D`)
)

// dobLayouts are the date notations accepted on intake forms, tried in order.
var dobLayouts = []string{"01/02/2006", "01-02-2006", "2006-01-02", "01/02/06"}

// ParseRecord turns raw extractable PDF text into a structured patient
// record with a confidence score. It fails only when the text contains no
// recoverable content; individual missing fields lower confidence instead.
func ParseRecord(text, sourcePath string) (domain.PatientRecord, error) {
	if strings.TrimSpace(text) == "" {
		return domain.PatientRecord{}, &ExtractionError{Path: sourcePath, Reason: "document contains no recoverable text"}
	}

	text = normalizeWhitespace(text)

	rec := domain.PatientRecord{SourceFilePath: sourcePath}
	rec.FirstName, rec.LastName = parseName(text)
	rec.DateOfBirth = normalizeDate(firstGroup(dobExpr, text))
	rec.Phone = normalizePhone(phoneExpr.FindString(text))
	rec.Email = emailExpr.FindString(text)
	rec.InsuranceName = firstGroup(insuranceExpr, text)
	rec.MemberID = firstGroup(memberIDExpr, text)
	rec.ReferringPhysician = firstGroup(physicianExpr, text)
	rec.Confidence = confidence(rec)

	return rec, nil
}

// parseName prefers explicit First Name / Last Name labels and falls back
// to a single labeled Name line, in either "Last, First" or "First Last"
// order.
func parseName(text string) (first, last string) {
	first = firstGroup(firstNameExpr, text)
	last = firstGroup(lastNameExpr, text)
	if first != "" || last != "" {
		return first, last
	}

	line := firstGroup(nameExpr, text)
	if line == "" {
		return "", ""
	}

	if comma := strings.Index(line, ","); comma >= 0 {
		last = strings.TrimSpace(line[:comma])
		first = strings.TrimSpace(line[comma+1:])
		return first, last
	}

	tokens := strings.Fields(line)
	if len(tokens) == 1 {
		return "", tokens[0]
	}
	return strings.Join(tokens[:len(tokens)-1], " "), tokens[len(tokens)-1]
}

// normalizeDate converts accepted DOB notations to MM/DD/YYYY. A value
// that matches no layout is treated as missing rather than guessed.
func normalizeDate(value string) string {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return ""
	}
	for _, layout := range dobLayouts {
		if parsed, err := time.Parse(layout, cleaned); err == nil {
			return parsed.Format("01/02/2006")
		}
	}
	return ""
}

// normalizePhone reduces a matched phone to its canonical bare ten digits.
func normalizePhone(value string) string {
	digits := nonDigitExpr.ReplaceAllString(value, "")
	if len(digits) != 10 {
		return ""
	}
	return digits
}

// confidence counts matched required fields out of six. The name slot
// matches only when both first and last are present; a present but
// optional referring physician never changes the score.
func confidence(rec domain.PatientRecord) float64 {
	matched := 0
	if rec.FirstName != "" && rec.LastName != "" {
		matched++
	}
	for _, field := range []string{
		rec.DateOfBirth,
		rec.Phone,
		rec.Email,
		rec.InsuranceName,
		rec.MemberID,
	} {
		if field != "" {
			matched++
		}
	}
	return float64(matched) / float64(requiredFields)
}

func firstGroup(expr *regexp.Regexp, text string) string {
	match := expr.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.Join(lines, "\n")
}
