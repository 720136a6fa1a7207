package chat

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptName returns the log file name for a chat started at t.
func TranscriptName(t time.Time) string {
	return "chat_log_" + t.Format("15-04-05") + ".txt"
}

// Transcript is the append-only chat log kept by the client.  Every
// line is flushed as soon as it is written.  A nil *Transcript
// discards everything.
type Transcript struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	path   string
	closed bool
}

// OpenTranscript creates (or appends to) the log for a chat started at
// now inside dir.
func OpenTranscript(dir string, now time.Time) (*Transcript, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, TranscriptName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening chat log: %w", err)
	}
	return &Transcript{f: f, w: bufio.NewWriter(f), path: path}, nil
}

// Path returns the file location.
func (t *Transcript) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Append writes "<role>: <msg>" and flushes it to the file.
func (t *Transcript) Append(from Role, msg string) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return os.ErrClosed
	}
	if _, err := fmt.Fprintf(t.w, "%s: %s\n", from, msg); err != nil {
		return err
	}
	return t.w.Flush()
}

// Close flushes and closes the file.  Later calls return nil.
func (t *Transcript) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	ferr := t.w.Flush()
	if err := t.f.Close(); err != nil {
		return err
	}
	return ferr
}
