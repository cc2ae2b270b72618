package sample

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/ports"
)

const fileName = "intake_sample.pdf"

// lines is the canned referral content used for local dry-runs.
var lines = []string{
	"First Name: Jane",
	"Last Name: Doe",
	"DOB: 02/14/1990",
	"Phone: (555) 123-4567",
	"Email: jane.doe@example.com",
	"Insurance: Best Health Co",
	"Member ID: A123456789",
	"Referring Physician: Dr. Smith",
}

// EnsurePDF writes a synthetic intake PDF into dir when one is missing
// and returns its path.
func EnsurePDF(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create sample dir: %w", err)
	}
	path := filepath.Join(dir, fileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	for _, line := range lines {
		pdf.CellFormat(0, 10, line, "", 1, "L", false, 0, "")
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write sample pdf: %w", err)
	}
	return path, nil
}

// Source yields the synthetic document when sample mode is enabled; a
// soft toggle for environments lacking live credentials.
type Source struct {
	Dir string
}

var _ ports.DocumentSource = (*Source)(nil)

// FetchNew creates the sample on demand and returns it as one document.
func (s *Source) FetchNew(ctx context.Context) ([]domain.IntakeDocument, error) {
	path, err := EnsurePDF(s.Dir)
	if err != nil {
		return nil, err
	}
	return []domain.IntakeDocument{{Path: path, Origin: domain.OriginSample}}, nil
}
