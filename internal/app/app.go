package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"IntakeRobot/internal/archive"
	"IntakeRobot/internal/config"
	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/extract"
	"IntakeRobot/internal/infrastructure/charting"
	"IntakeRobot/internal/infrastructure/drive"
	"IntakeRobot/internal/infrastructure/email"
	"IntakeRobot/internal/infrastructure/mailbox"
	"IntakeRobot/internal/infrastructure/scheduler"
	"IntakeRobot/internal/logging"
	"IntakeRobot/internal/ports"
	"IntakeRobot/internal/sample"
	"IntakeRobot/internal/source"
	"IntakeRobot/internal/usecase"
)

// Application wires configuration to the intake pipeline and owns the
// resources acquired for the lifetime of the process: the mock charting
// host, the charting session, and the scheduler.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	charting  ports.ChartingClient
	mock      *charting.MockServer
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	registry := source.NewRegistry()

	// Channel priority is fixed: email first, then drive, then sample.
	if cfg.Inbox.Address != "" {
		registry.Register("referral-inbox", domain.OriginEmail, mailbox.NewSource(
			cfg.Inbox.IMAPHost,
			cfg.Inbox.Address,
			cfg.Inbox.Password,
			cfg.Inbox.Folder,
			cfg.Intake.InboxDir,
			baseLogger.With("component", "source.email"),
		))
	}

	var store ports.FolderStore
	if cfg.Drive.RootFolderID != "" {
		driveStore, err := drive.NewStore(ctx,
			cfg.Drive.CredentialsPath,
			cfg.Drive.RootFolderID,
			cfg.Intake.InboxDir,
			baseLogger.With("component", "source.drive"),
		)
		if err != nil {
			baseLogger.Warn("drive store unavailable", "error", err)
		} else {
			store = driveStore
			registry.Register("drive-intake", domain.OriginDrive, driveStore)
		}
	}

	if cfg.Intake.SampleMode {
		registry.Register("sample", domain.OriginSample, &sample.Source{Dir: cfg.Intake.InboxDir})
	}

	var mock *charting.MockServer
	if cfg.Charting.ServeMock {
		mock = charting.NewMockServer(cfg.Charting.LocalPort, baseLogger.With("component", "charting.mock"))
	}
	client := charting.NewClient(cfg.Charting.BaseURL, cfg.Charting.Username, cfg.Charting.Password)

	notifier := email.NewNotifier(
		cfg.Alerts.SMTPHost,
		cfg.Alerts.SMTPPort,
		cfg.Alerts.Sender,
		cfg.Alerts.Password,
	)

	remoteArchive, remoteExcepts := "", ""
	if store != nil {
		remoteArchive = drive.ArchiveFolder
		remoteExcepts = drive.ExceptionsFolder
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:        registry,
		Store:          store,
		Charting:       client,
		Notifier:       notifier,
		Router:         archive.NewRouter(cfg.Intake.ArchiveDir, cfg.Intake.ExceptionsDir),
		Validator:      extract.NewValidator(cfg.Intake.ConfidenceThreshold),
		AlertRecipient: cfg.Alerts.Recipient,
		RemoteArchive:  remoteArchive,
		RemoteExcepts:  remoteExcepts,
		Logger:         baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		charting:  client,
		mock:      mock,
		scheduler: usecase.NewScheduler(driver, pipeline),
	}
}

// Run acquires the hosting endpoint and scheduler, then blocks until the
// process is signalled. Teardown happens regardless of per-run outcomes.
func (a *Application) Run(ctx context.Context) error {
	if a.mock != nil {
		a.mock.Start()
		defer a.mock.Stop()
	}
	defer func() {
		if err := a.charting.Close(); err != nil {
			a.logger.Warn("closing charting session", "error", err)
		}
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.scheduler.Stop(context.Background()); err != nil {
			a.logger.Warn("stopping scheduler", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case sig := <-stop:
		a.logger.Info("shutting down", "signal", sig.String())
	}

	return nil
}
