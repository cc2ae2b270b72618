package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/ports"
)

const (
	// Remote subfolders under the configured intake root.
	ArchiveFolder    = "Archive"
	ExceptionsFolder = "Exceptions"

	folderMIME = "application/vnd.google-apps.folder"
	pdfMIME    = "application/pdf"
)

// Store is the remote document repository backed by a Google Drive
// folder: it yields newly dropped PDFs and accepts mirror uploads of
// locally routed files.
type Store struct {
	service    *drive.Service
	rootID     string
	stagingDir string
	logger     *slog.Logger

	folderIDs map[string]string
}

var _ ports.FolderStore = (*Store)(nil)

// NewStore builds a Drive client from a service-account credentials file.
func NewStore(ctx context.Context, credentialsPath, rootFolderID, stagingDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	service, err := drive.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Store{
		service:    service,
		rootID:     rootFolderID,
		stagingDir: stagingDir,
		logger:     logger,
		folderIDs:  map[string]string{},
	}, nil
}

// FetchNew lists PDFs sitting directly in the intake root, downloads each
// to local staging, and returns one document per file. Downloaded files
// are moved into the remote Archive only by later mirror uploads, so a
// crashed run re-observes them; in-run dedup keeps the queue clean.
func (s *Store) FetchNew(ctx context.Context) ([]domain.IntakeDocument, error) {
	if s.rootID == "" {
		return nil, fmt.Errorf("drive store missing root folder id")
	}
	if err := os.MkdirAll(s.stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and trashed=false", s.rootID, pdfMIME)
	list, err := s.service.Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list intake folder: %w", err)
	}

	var docs []domain.IntakeDocument
	for _, f := range list.Files {
		dest := filepath.Join(s.stagingDir, filepath.Base(f.Name))
		if err := s.download(ctx, f.Id, dest); err != nil {
			s.logger.Warn("cannot download drive file", "name", f.Name, "error", err)
			continue
		}
		docs = append(docs, domain.IntakeDocument{
			Path:       dest,
			Origin:     domain.OriginDrive,
			ExternalID: f.Id,
		})
	}

	return docs, nil
}

// Upload mirrors a locally routed file into the named subfolder under the
// intake root, creating the subfolder on first use.
func (s *Store) Upload(ctx context.Context, localPath, remoteFolder string) error {
	folderID, err := s.ensureFolder(ctx, remoteFolder)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	meta := &drive.File{
		Name:    filepath.Base(localPath),
		Parents: []string{folderID},
	}
	if _, err := s.service.Files.Create(meta).Media(f).Context(ctx).Do(); err != nil {
		return fmt.Errorf("upload %s to %s: %w", localPath, remoteFolder, err)
	}

	s.logger.Info("mirrored file to drive", "file", filepath.Base(localPath), "folder", remoteFolder)
	return nil
}

func (s *Store) download(ctx context.Context, fileID, dest string) error {
	resp, err := s.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok {
			return fmt.Errorf("drive download (%d): %w", gerr.Code, err)
		}
		return fmt.Errorf("drive download: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return out.Close()
}

// ensureFolder resolves a subfolder ID under the root, creating it if
// missing. IDs are cached for the lifetime of the store.
func (s *Store) ensureFolder(ctx context.Context, name string) (string, error) {
	if id, ok := s.folderIDs[name]; ok {
		return id, nil
	}

	query := fmt.Sprintf("'%s' in parents and mimeType='%s' and name='%s' and trashed=false", s.rootID, folderMIME, name)
	list, err := s.service.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("lookup folder %s: %w", name, err)
	}
	if len(list.Files) > 0 {
		s.folderIDs[name] = list.Files[0].Id
		return list.Files[0].Id, nil
	}

	created, err := s.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMIME,
		Parents:  []string{s.rootID},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder %s: %w", name, err)
	}

	s.folderIDs[name] = created.Id
	return created.Id, nil
}
