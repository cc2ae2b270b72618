package charting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"

	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/ports"
)

// Stable identifiers the charting form exposes. The client targets these
// as form field names and verifies success via the confirmation selector.
const (
	FieldFirstName = "first-name"
	FieldLastName  = "last-name"
	FieldDOB       = "dob"
	FieldPhone     = "phone"
	FieldEmail     = "email"
	FieldInsurance = "insurance"
	FieldMemberID  = "member-id"
	FieldPhysician = "physician"
	FieldAttach    = "attachment"

	submitSelector       = "#submit-btn"
	confirmationSelector = "#confirmation"
)

// SubmissionError reports a charting UI failure of any kind: missing
// element, timeout, transport failure. The orchestrator does not
// distinguish subtypes; all of them except the document.
type SubmissionError struct {
	Op     string
	Reason string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("charting %s: %s", e.Op, e.Reason)
}

// Client drives the charting system's form interface over one long-lived
// HTTP session reused for the whole batch.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	openWait time.Duration
	ready    bool
}

var _ ports.ChartingClient = (*Client)(nil)

// NewClient wires the session; the base URL points at the hosted form.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 15 * time.Second},
		openWait: 10 * time.Second,
	}
}

// Open waits for the form to become reachable and for its submit control
// to render. It is idempotent: once ready, repeat calls are no-ops.
func (c *Client) Open(ctx context.Context) error {
	if c.ready {
		return nil
	}

	deadline := time.Now().Add(c.openWait)
	var lastErr error
	for time.Now().Before(deadline) {
		doc, err := c.fetchForm(ctx)
		if err == nil && doc.Find(submitSelector).Length() > 0 {
			c.ready = true
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("submit control %s not present", submitSelector)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("charting endpoint not ready: %w", lastErr)
}

// Submit posts the record fields plus the source PDF and requires the
// confirmation element in the response.
func (c *Client) Submit(ctx context.Context, rec domain.PatientRecord, filePath string) error {
	if !c.ready {
		if err := c.Open(ctx); err != nil {
			return &SubmissionError{Op: "open", Reason: err.Error()}
		}
	}

	body, contentType, err := encodeForm(rec, filePath)
	if err != nil {
		return &SubmissionError{Op: "encode", Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit", body)
	if err != nil {
		return &SubmissionError{Op: "request", Reason: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &SubmissionError{Op: "submit", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SubmissionError{Op: "submit", Reason: fmt.Sprintf("status %s: %s", resp.Status, bytes.TrimSpace(payload))}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return &SubmissionError{Op: "confirm", Reason: "unparseable response: " + err.Error()}
	}
	if doc.Find(confirmationSelector).Length() == 0 {
		return &SubmissionError{Op: "confirm", Reason: fmt.Sprintf("confirmation element %s not found", confirmationSelector)}
	}

	return nil
}

// Close releases the session. The HTTP client holds no server-side state,
// so this only drops idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	c.ready = false
	return nil
}

func (c *Client) fetchForm(ctx context.Context) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request form: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("charting returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	return doc, nil
}

func encodeForm(rec domain.PatientRecord, filePath string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	fields := map[string]string{
		FieldFirstName: rec.FirstName,
		FieldLastName:  rec.LastName,
		FieldDOB:       rec.DateOfBirth,
		FieldPhone:     rec.Phone,
		FieldEmail:     rec.Email,
		FieldInsurance: rec.InsuranceName,
		FieldMemberID:  rec.MemberID,
		FieldPhysician: rec.ReferringPhysician,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	part, err := writer.CreateFormFile(FieldAttach, filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("create attachment part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy attachment: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}
