package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"IntakeRobot/internal/archive"
	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/extract"
	"IntakeRobot/internal/ports"
	"IntakeRobot/internal/source"
)

const goodReferral = `Name: Doe, Jane
DOB: 03/14/1990
Phone: (555) 123-4567
Email: jane@doe.com
Insurance: Acme Health
Member ID: M12345`

type fakeSource struct {
	docs []domain.IntakeDocument
	err  error
}

func (f *fakeSource) FetchNew(ctx context.Context) ([]domain.IntakeDocument, error) {
	return f.docs, f.err
}

type fakeStore struct {
	fakeSource
	uploads   []string
	uploadErr error
}

func (f *fakeStore) Upload(ctx context.Context, localPath, remoteFolder string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, remoteFolder+"/"+filepath.Base(localPath))
	return nil
}

type fakeCharting struct {
	opened    int
	submitted []string
	submitErr error
}

func (f *fakeCharting) Open(ctx context.Context) error { f.opened++; return nil }

func (f *fakeCharting) Submit(ctx context.Context, rec domain.PatientRecord, filePath string) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, rec.LastName)
	return nil
}

func (f *fakeCharting) Close() error { return nil }

type fakeNotifier struct {
	bodies []string
	err    error
}

func (f *fakeNotifier) Alert(ctx context.Context, recipient, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	if subject != "Intake Failure Alert" {
		return fmt.Errorf("unexpected subject %q", subject)
	}
	f.bodies = append(f.bodies, body)
	return nil
}

type harness struct {
	pipeline *Pipeline
	store    *fakeStore
	charting *fakeCharting
	notifier *fakeNotifier
	router   *archive.Router
	intake   string
	texts    map[string]string
}

func newHarness(t *testing.T, registry *source.Registry) *harness {
	t.Helper()

	root := t.TempDir()
	h := &harness{
		store:    &fakeStore{},
		charting: &fakeCharting{},
		notifier: &fakeNotifier{},
		router:   archive.NewRouter(filepath.Join(root, "archive"), filepath.Join(root, "exceptions")),
		intake:   filepath.Join(root, "intake"),
		texts:    map[string]string{},
	}
	if err := os.MkdirAll(h.intake, 0o755); err != nil {
		t.Fatalf("create intake dir: %v", err)
	}

	h.pipeline = NewPipeline(PipelineDeps{
		Sources:        registry,
		Store:          h.store,
		Charting:       h.charting,
		Notifier:       h.notifier,
		Router:         h.router,
		Validator:      extract.NewValidator(0.95),
		AlertRecipient: "ops@example.com",
		RemoteArchive:  "Archive",
		RemoteExcepts:  "Exceptions",
		ReadText: func(path string) (string, error) {
			text, ok := h.texts[path]
			if !ok {
				return "", fmt.Errorf("no text for %s", path)
			}
			return text, nil
		},
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	return h
}

// addDoc creates a real file in the intake dir so routing moves succeed.
func (h *harness) addDoc(t *testing.T, name, text string) domain.IntakeDocument {
	t.Helper()
	path := filepath.Join(h.intake, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	h.texts[path] = text
	return domain.IntakeDocument{Path: path}
}

func TestRunArchivesValidDocument(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	h := newHarness(t, registry)
	doc := h.addDoc(t, "referral.pdf", goodReferral)
	registry.Register("referral-inbox", domain.OriginEmail, &fakeSource{docs: []domain.IntakeDocument{doc}})

	stats, err := h.pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Processed != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	archived := filepath.Join(h.router.ArchiveDir, "Doe_Jane_03141990.pdf")
	if _, err := os.Stat(archived); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
	if _, err := os.Stat(doc.Path); !os.IsNotExist(err) {
		t.Fatalf("source file should have moved, stat err=%v", err)
	}
	if len(h.store.uploads) != 1 || h.store.uploads[0] != "Archive/Doe_Jane_03141990.pdf" {
		t.Fatalf("unexpected mirrors: %v", h.store.uploads)
	}
	if len(h.charting.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(h.charting.submitted))
	}
	if h.charting.opened == 0 {
		t.Fatal("charting session was never opened")
	}
}

func TestRunIsolatesFailingDocument(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	h := newHarness(t, registry)
	bad := h.addDoc(t, "broken.pdf", "   ")
	good := h.addDoc(t, "referral.pdf", goodReferral)
	registry.Register("referral-inbox", domain.OriginEmail, &fakeSource{docs: []domain.IntakeDocument{bad, good}})

	stats, err := h.pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Processed != 1 || stats.Failed != 1 {
		t.Fatalf("one bad document must not abort the batch: %+v", stats)
	}

	entries, err := os.ReadDir(h.router.ExceptionsDir)
	if err != nil {
		t.Fatalf("read exceptions dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), "_broken.pdf") {
		t.Fatalf("unexpected exceptions contents: %v", entries)
	}
	if len(h.notifier.bodies) != 1 {
		t.Fatalf("expected one alert, got %d", len(h.notifier.bodies))
	}
	if !strings.Contains(h.notifier.bodies[0], "_broken.pdf") {
		t.Fatalf("alert must name the exception file: %q", h.notifier.bodies[0])
	}
}

func TestRunLowConfidenceGoesToExceptions(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	h := newHarness(t, registry)
	doc := h.addDoc(t, "partial.pdf", strings.Replace(goodReferral, "Phone: (555) 123-4567\n", "", 1))
	registry.Register("referral-inbox", domain.OriginEmail, &fakeSource{docs: []domain.IntakeDocument{doc}})

	stats, err := h.pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Failed != 1 {
		t.Fatalf("expected one failure, got %+v", stats)
	}
	if len(h.notifier.bodies) != 1 {
		t.Fatalf("expected one alert, got %d", len(h.notifier.bodies))
	}
	body := h.notifier.bodies[0]
	if !strings.Contains(body, "0.83") || !strings.Contains(body, "0.95") {
		t.Fatalf("alert must carry confidence and threshold: %q", body)
	}
}

func TestRunSubmissionFailureOverridesExtraction(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	h := newHarness(t, registry)
	doc := h.addDoc(t, "referral.pdf", goodReferral)
	registry.Register("referral-inbox", domain.OriginEmail, &fakeSource{docs: []domain.IntakeDocument{doc}})
	h.charting.submitErr = errors.New("element not found: #submit-btn")

	stats, err := h.pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Processed != 0 || stats.Failed != 1 {
		t.Fatalf("submission failure must except the document: %+v", stats)
	}
	if len(h.notifier.bodies) != 1 || !strings.Contains(h.notifier.bodies[0], "element not found") {
		t.Fatalf("alert must carry the submission reason: %v", h.notifier.bodies)
	}
}

func TestRunDeduplicatesFirstOccurrenceWins(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	h := newHarness(t, registry)
	doc := h.addDoc(t, "referral.pdf", goodReferral)

	// The same (source_label, path) signature arrives twice; drive offers
	// the same path under its own label and is processed independently.
	dup := doc
	registry.Register("referral-inbox", domain.OriginEmail, &fakeSource{docs: []domain.IntakeDocument{doc, dup}})

	stats, err := h.pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Processed != 1 {
		t.Fatalf("duplicate signature must be queued once: %+v", stats)
	}
	if len(h.charting.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(h.charting.submitted))
	}
}

func TestRunSourceFailureIsEmptyContribution(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	h := newHarness(t, registry)
	doc := h.addDoc(t, "referral.pdf", goodReferral)
	registry.Register("referral-inbox", domain.OriginEmail, &fakeSource{err: errors.New("imap: connection refused")})
	registry.Register("drive-intake", domain.OriginDrive, &fakeSource{docs: []domain.IntakeDocument{doc}})

	stats, err := h.pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("a failing source must not abort the run: %v", err)
	}
	if stats.Processed != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunMirrorAndNotifierFailuresAreNonFatal(t *testing.T) {
	t.Parallel()

	registry := source.NewRegistry()
	h := newHarness(t, registry)
	good := h.addDoc(t, "referral.pdf", goodReferral)
	bad := h.addDoc(t, "broken.pdf", "")
	registry.Register("referral-inbox", domain.OriginEmail, &fakeSource{docs: []domain.IntakeDocument{good, bad}})
	h.store.uploadErr = errors.New("remote quota exceeded")
	h.notifier.err = errors.New("smtp unreachable")

	stats, err := h.pipeline.Run(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("best-effort branches must never fail the run: %v", err)
	}
	if stats.Processed != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := os.Stat(filepath.Join(h.router.ArchiveDir, "Doe_Jane_03141990.pdf")); err != nil {
		t.Fatalf("local archive is authoritative despite mirror failure: %v", err)
	}
}

var _ ports.FolderStore = (*fakeStore)(nil)
var _ ports.ChartingClient = (*fakeCharting)(nil)
var _ ports.Notifier = (*fakeNotifier)(nil)
