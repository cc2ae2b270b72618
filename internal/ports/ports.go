package ports

import (
	"context"
	"time"

	"IntakeRobot/internal/domain"
)

// DocumentSource yields freshly observed intake documents. A source error
// is treated by the caller as an empty contribution, never a run abort.
type DocumentSource interface {
	FetchNew(ctx context.Context) ([]domain.IntakeDocument, error)
}

// FolderStore is the remote document repository: it can be polled for new
// documents and accepts mirror uploads of locally routed files.
type FolderStore interface {
	DocumentSource
	Upload(ctx context.Context, localPath, remoteFolder string) error
}

// ChartingClient submits a structured record plus its source file into the
// external charting system. Open is idempotent and guards a single
// long-lived session reused across the whole batch.
type ChartingClient interface {
	Open(ctx context.Context) error
	Submit(ctx context.Context, rec domain.PatientRecord, filePath string) error
	Close() error
}

// Notifier delivers operator alerts. Failures are reported as errors for
// the caller to log; the exception path never escalates them.
type Notifier interface {
	Alert(ctx context.Context, recipient, subject, body string) error
}

// Scheduler controls when intake runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
