package mailbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"IntakeRobot/internal/domain"
	"IntakeRobot/internal/ports"
)

// Source polls a referral mailbox for unseen messages and downloads their
// PDF attachments into the local inbox directory. Each saved attachment
// becomes one intake document; handled messages are flagged seen so the
// next poll skips them.
type Source struct {
	host     string
	address  string
	password string
	folder   string
	saveDir  string
	logger   *slog.Logger
}

var _ ports.DocumentSource = (*Source)(nil)

// NewSource wires mailbox credentials and the local download directory.
func NewSource(host, address, password, folder, saveDir string, logger *slog.Logger) *Source {
	if folder == "" {
		folder = "INBOX"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		host:     host,
		address:  address,
		password: password,
		folder:   folder,
		saveDir:  saveDir,
		logger:   logger,
	}
}

// FetchNew connects, drains unseen messages, and returns one document per
// saved PDF attachment.
func (s *Source) FetchNew(ctx context.Context) ([]domain.IntakeDocument, error) {
	if s.address == "" || s.password == "" {
		return nil, fmt.Errorf("inbox source missing credentials")
	}
	if err := os.MkdirAll(s.saveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}

	c, err := client.DialTLS(s.host, nil)
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", s.host, err)
	}
	defer c.Logout()

	if err := c.Login(s.address, s.password); err != nil {
		return nil, fmt.Errorf("login %s: %w", s.address, err)
	}

	if _, err := c.Select(s.folder, false); err != nil {
		return nil, fmt.Errorf("select %s: %w", s.folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seq := new(imap.SeqSet)
	seq.AddNum(ids...)
	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seq, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var docs []domain.IntakeDocument
	for msg := range messages {
		select {
		case <-ctx.Done():
			return docs, ctx.Err()
		default:
		}

		saved, err := s.saveAttachments(msg.GetBody(section))
		if err != nil {
			s.logger.Warn("skipping unreadable message", "seq", msg.SeqNum, "error", err)
			continue
		}
		docs = append(docs, saved...)
	}
	if err := <-done; err != nil {
		return docs, fmt.Errorf("fetch messages: %w", err)
	}

	// Mark the batch seen only after every message was inspected.
	flags := []interface{}{imap.SeenFlag}
	if err := c.Store(seq, imap.FormatFlagsOp(imap.AddFlags, true), flags, nil); err != nil {
		s.logger.Warn("cannot flag messages seen", "error", err)
	}

	return docs, nil
}

func (s *Source) saveAttachments(body io.Reader) ([]domain.IntakeDocument, error) {
	if body == nil {
		return nil, fmt.Errorf("empty message body")
	}

	reader, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	var docs []domain.IntakeDocument
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return docs, fmt.Errorf("read part: %w", err)
		}

		header, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := header.Filename()
		if err != nil || !strings.EqualFold(filepath.Ext(filename), ".pdf") {
			continue
		}

		dest := filepath.Join(s.saveDir, filepath.Base(filename))
		if err := writeFile(dest, part.Body); err != nil {
			return docs, fmt.Errorf("save attachment %s: %w", filename, err)
		}

		s.logger.Info("downloaded referral attachment", "file", dest)
		docs = append(docs, domain.IntakeDocument{
			Path:   dest,
			Origin: domain.OriginEmail,
		})
	}

	return docs, nil
}

func writeFile(dest string, src io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
