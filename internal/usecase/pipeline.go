package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"IntakeRobot/internal/archive"
	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/extract"
	"IntakeRobot/internal/ports"
	"IntakeRobot/internal/source"

	"github.com/google/uuid"
)

const alertSubject = "Intake Failure Alert"

// PipelineDeps wires all collaborators into the intake orchestrator.
type PipelineDeps struct {
	Sources        *source.Registry
	Store          ports.FolderStore
	Charting       ports.ChartingClient
	Notifier       ports.Notifier
	Router         *archive.Router
	Validator      extract.Validator
	AlertRecipient string
	RemoteArchive  string
	RemoteExcepts  string
	ReadText       func(path string) (string, error)
	Logger         *slog.Logger
}

// Pipeline drives one intake batch: collect, deduplicate, iterate with
// per-document fault isolation, route, summarize.
type Pipeline struct {
	sources        *source.Registry
	store          ports.FolderStore
	charting       ports.ChartingClient
	notifier       ports.Notifier
	router         *archive.Router
	validator      extract.Validator
	alertRecipient string
	remoteArchive  string
	remoteExcepts  string
	readText       func(path string) (string, error)
	logger         *slog.Logger
	now            func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	readText := deps.ReadText
	if readText == nil {
		readText = extract.PDFText
	}
	return &Pipeline{
		sources:        deps.Sources,
		store:          deps.Store,
		charting:       deps.Charting,
		notifier:       deps.Notifier,
		router:         deps.Router,
		validator:      deps.Validator,
		alertRecipient: deps.AlertRecipient,
		remoteArchive:  deps.RemoteArchive,
		remoteExcepts:  deps.RemoteExcepts,
		readText:       readText,
		logger:         logger,
		now:            time.Now,
	}
}

// Run executes the full batch once. Setup failures (missing output
// directories, unreachable charting session) abort before any document is
// touched; everything after that is isolated per document.
func (p *Pipeline) Run(ctx context.Context, trigger time.Time) (domain.RunStats, error) {
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)
	log.Info("intake run starting", "trigger", trigger.Format(time.RFC3339))

	stats := domain.RunStats{}
	if p.router != nil {
		if err := p.router.EnsureDirs(); err != nil {
			return stats, fmt.Errorf("prepare output directories: %w", err)
		}
	}
	if p.charting != nil {
		if err := p.charting.Open(ctx); err != nil {
			return stats, fmt.Errorf("open charting session: %w", err)
		}
	}

	queue := p.dedupe(p.collect(ctx, log))
	log.Info("intake queue assembled", "documents", len(queue))

	for _, doc := range queue {
		if err := p.process(ctx, doc); err != nil {
			p.escalate(ctx, log, doc, err)
			stats.Failed++
			continue
		}
		stats.Processed++
	}

	log.Info("intake run complete", "summary", stats.Summary())
	if stats.Failed > 0 && p.router != nil {
		log.Warn("failed documents await review", "exceptions_dir", p.router.ExceptionsDir)
	}
	return stats, nil
}

// collect asks every registered channel for new documents. A failing
// channel contributes nothing and never aborts the run.
func (p *Pipeline) collect(ctx context.Context, log *slog.Logger) []domain.IntakeDocument {
	var gathered []domain.IntakeDocument
	if p.sources == nil {
		return gathered
	}
	for _, entry := range p.sources.Entries() {
		docs, err := entry.Fetcher.FetchNew(ctx)
		if err != nil {
			log.Warn("source unavailable, skipping", "source", entry.Label, "error", err)
			continue
		}
		docs = source.Stamp(docs, entry)
		log.Info("source produced documents", "source", entry.Label, "count", len(docs))
		gathered = append(gathered, docs...)
	}
	return gathered
}

// dedupe drops documents whose (source_label, path) signature was already
// seen; the first occurrence wins, preserving source priority.
func (p *Pipeline) dedupe(docs []domain.IntakeDocument) []domain.IntakeDocument {
	seen := map[string]struct{}{}
	queue := make([]domain.IntakeDocument, 0, len(docs))
	for _, doc := range docs {
		key := doc.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		queue = append(queue, doc)
	}
	return queue
}

// process is the atomic attempt for one document: extract, validate,
// submit, archive. Any error surfaces to the single recovery boundary in
// Run and redirects the document to the exception path.
func (p *Pipeline) process(ctx context.Context, doc domain.IntakeDocument) error {
	log := p.logger.With("source", doc.SourceLabel, "file", doc.Path)

	log.Debug("document state", "state", domain.StateExtracting)
	text, err := p.readText(doc.Path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	rec, err := extract.ParseRecord(text, doc.Path)
	if err != nil {
		return err
	}

	log.Debug("document state", "state", domain.StateValidating, "confidence", rec.Confidence)
	if err := p.validator.Check(rec); err != nil {
		return err
	}

	log.Debug("document state", "state", domain.StateSubmitting)
	if p.charting != nil {
		if err := p.charting.Submit(ctx, rec, doc.Path); err != nil {
			return fmt.Errorf("charting submission: %w", err)
		}
	}

	name := archive.PatientFilename(rec)
	finalPath, err := p.router.ToArchive(doc.Path, name)
	if err != nil {
		return err
	}
	p.mirror(ctx, log, finalPath, p.remoteArchive)

	log.Info("document archived", "state", domain.StateArchived,
		"patient", rec.LastName+", "+rec.FirstName, "archived_as", name)
	return nil
}

// escalate routes a failed document to the exceptions location and alerts
// the operator. Nothing in here may fail the run: mirror and notifier
// errors are logged and intentionally discarded.
func (p *Pipeline) escalate(ctx context.Context, log *slog.Logger, doc domain.IntakeDocument, cause error) {
	log = log.With("source", doc.SourceLabel, "file", doc.Path)

	finalPath := doc.Path
	name := archive.ExceptionFilename(p.now(), doc.Path)
	if moved, err := p.router.ToExceptions(doc.Path, name); err != nil {
		log.Error("cannot move document to exceptions", "error", err)
	} else {
		finalPath = moved
		p.mirror(ctx, log, finalPath, p.remoteExcepts)
	}

	log.Error("document excepted", "state", domain.StateExcepted, "reason", cause)

	if p.notifier == nil || p.alertRecipient == "" {
		return
	}
	body := fmt.Sprintf("Intake document could not be processed.\nFile: %s\nReason: %v\n", finalPath, cause)
	if err := p.notifier.Alert(ctx, p.alertRecipient, alertSubject, body); err != nil {
		log.Warn("alert delivery failed", "recipient", p.alertRecipient, "error", err)
	}
}

// mirror pushes an already-routed file to the remote store. Local routing
// is authoritative, so a mirror failure is logged only.
func (p *Pipeline) mirror(ctx context.Context, log *slog.Logger, localPath, remoteFolder string) {
	if p.store == nil || remoteFolder == "" {
		return
	}
	if err := p.store.Upload(ctx, localPath, remoteFolder); err != nil {
		log.Warn("remote mirror failed", "path", localPath, "folder", remoteFolder, "error", err)
	}
}
