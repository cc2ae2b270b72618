package charting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"IntakeRobot/internal/domain"
)

func testRecord() domain.PatientRecord {
	return domain.PatientRecord{
		FirstName:     "Jane",
		LastName:      "Doe",
		DateOfBirth:   "03/14/1990",
		Phone:         "5551234567",
		Email:         "jane@doe.com",
		InsuranceName: "Acme Health",
		MemberID:      "M12345",
		Confidence:    1.0,
	}
}

func testAttachment(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "referral.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644); err != nil {
		t.Fatalf("write attachment: %v", err)
	}
	return path
}

func TestSubmitAgainstMockServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(NewMockServer(0, nil).Handler())
	defer srv.Close()

	client := NewClient(srv.URL+"/charting", "", "")
	ctx := context.Background()

	if err := client.Open(ctx); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	// Idempotent: a second open is a no-op.
	if err := client.Open(ctx); err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}

	if err := client.Submit(ctx, testRecord(), testAttachment(t)); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
}

func TestSubmitRejectedWhenFieldMissing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(NewMockServer(0, nil).Handler())
	defer srv.Close()

	client := NewClient(srv.URL+"/charting", "", "")
	rec := testRecord()
	rec.Phone = ""

	err := client.Submit(context.Background(), rec, testAttachment(t))
	if err == nil {
		t.Fatal("expected submission error for missing field")
	}
	subErr, ok := err.(*SubmissionError)
	if !ok {
		t.Fatalf("expected SubmissionError, got %T", err)
	}
	if !strings.Contains(subErr.Reason, "phone") {
		t.Fatalf("reason should name the missing field: %q", subErr.Reason)
	}
}

func TestSubmitRequiresConfirmationElement(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/charting", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><button id="submit-btn"></button></body></html>`))
	})
	mux.HandleFunc("/charting/submit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>saved, probably</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL+"/charting", "", "")
	err := client.Submit(context.Background(), testRecord(), testAttachment(t))
	if err == nil {
		t.Fatal("expected submission error when confirmation element is absent")
	}
	if !strings.Contains(err.Error(), "#confirmation") {
		t.Fatalf("error should reference the confirmation selector: %v", err)
	}
}

func TestOpenFailsWithoutSubmitControl(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>under maintenance</body></html>`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", "")
	client.openWait = 600 * time.Millisecond

	if err := client.Open(context.Background()); err == nil {
		t.Fatal("expected Open to fail while the submit control is missing")
	}
}
