package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is everything worth keeping about one answered mention.
type Entry struct {
	MentionID int64
	PostID    int64
	Author    string
	Mention   string
	Context   string
	Reply     string
}

// Writer persists one plain-text artifact per successfully answered mention.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteReply stores the artifact and returns its path. Callers treat
// failures as best-effort: log and move on.
func (w *Writer) WriteReply(e Entry) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audit directory: %w", err)
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("reply-%d-%s.txt", e.MentionID, now.Format("20060102-150405"))
	path := filepath.Join(w.dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "mention_id: %d\n", e.MentionID)
	fmt.Fprintf(&b, "post_id: %d\n", e.PostID)
	fmt.Fprintf(&b, "author: @%s\n", e.Author)
	fmt.Fprintf(&b, "time: %s\n", now.Format(time.RFC3339))
	b.WriteString("\n--- mention ---\n")
	b.WriteString(e.Mention)
	b.WriteString("\n\n--- context ---\n")
	b.WriteString(e.Context)
	b.WriteString("\n\n--- reply ---\n")
	b.WriteString(e.Reply)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write audit artifact: %w", err)
	}
	return path, nil
}

// Sweep deletes artifacts older than maxAge and returns how many were
// removed. A missing directory is not an error.
func (w *Writer) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read audit directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(w.dir, de.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
