package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Router owns the local archive and exceptions directories and performs
// the filesystem moves that terminate a document's lifecycle. Local moves
// are authoritative: they either succeed or fail the document hard, unlike
// best-effort remote mirrors.
type Router struct {
	ArchiveDir    string
	ExceptionsDir string
}

func NewRouter(archiveDir, exceptionsDir string) *Router {
	return &Router{ArchiveDir: archiveDir, ExceptionsDir: exceptionsDir}
}

// EnsureDirs creates both destinations. Failure here is a setup failure
// and aborts the run before any document is processed.
func (r *Router) EnsureDirs() error {
	for _, dir := range []string{r.ArchiveDir, r.ExceptionsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ToArchive moves src into the archive under name and returns the final path.
func (r *Router) ToArchive(src, name string) (string, error) {
	dest := filepath.Join(r.ArchiveDir, name)
	if err := moveFile(src, dest); err != nil {
		return "", fmt.Errorf("archive %s: %w", src, err)
	}
	return dest, nil
}

// ToExceptions moves src into the exceptions location under name and
// returns the final path.
func (r *Router) ToExceptions(src, name string) (string, error) {
	dest := filepath.Join(r.ExceptionsDir, name)
	if err := moveFile(src, dest); err != nil {
		return "", fmt.Errorf("route to exceptions %s: %w", src, err)
	}
	return dest, nil
}

// moveFile renames, falling back to copy+remove when src and dest live on
// different filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("finalize destination: %w", err)
	}

	return os.Remove(src)
}
