package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

type devSender struct {
	dir string
	now func() time.Time
}

// NewDevSender writes messages below dir instead of sending them.
func NewDevSender(dir string) Sender {
	return &devSender{dir: dir, now: time.Now}
}

type devRecord struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
	Text      string `json:"text,omitempty"`
}

func (d *devSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrFailedToSendEmail, err)
	}

	now := d.now()
	id := msg.Tag
	if id == "" {
		id = msg.Subject
	}
	base := filepath.Join(d.dir, now.Format("2006_01_02_150405.000000")+"_"+sanitizeFilename(id))

	if msg.HTML != "" {
		if err := os.WriteFile(base+".html", []byte(msg.HTML), 0o644); err != nil {
			return fmt.Errorf("%w: write html: %w", ErrFailedToSendEmail, err)
		}
	}

	data, err := json.MarshalIndent(devRecord{
		Timestamp: now.Format(time.RFC3339),
		To:        msg.To,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
		Text:      msg.Text,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal metadata: %w", ErrFailedToSendEmail, err)
	}
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata: %w", ErrFailedToSendEmail, err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ReplaceAll(s, " ", "_"), "")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
