package settings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	logNameLayout  = "02-01-2006_15-04-05"
	logStampLayout = "02-01-2006 15:04"
	logRule        = 50
)

// LogName returns the change log file name for a session started at t.
func LogName(t time.Time) string {
	return "settings_log_" + t.Format(logNameLayout) + ".txt"
}

// ChangeLog records settings changes as "[dd-mm-YYYY HH:MM] message",
// one flushed line per change.  Every line is also copied to echo.
// A nil *ChangeLog drops everything.
type ChangeLog struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
	echo io.Writer
	now  func() time.Time
	err  error // first write failure
}

// OpenChangeLog creates the log in dir and writes the opening banner.
// now may be nil.
func OpenChangeLog(dir string, now func() time.Time, echo io.Writer) (*ChangeLog, error) {
	if now == nil {
		now = time.Now
	}
	if echo == nil {
		echo = io.Discard
	}
	if dir == "" {
		dir = "."
	}
	name := LogName(now())
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening settings log: %w", err)
	}
	l := &ChangeLog{f: f, w: bufio.NewWriter(f), path: path, echo: echo, now: now}
	l.Record("Settings log started - File: %s", name)
	l.Record("%s", strings.Repeat("=", logRule))
	return l, nil
}

// Path returns the file location.
func (l *ChangeLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends one timestamped line.
func (l *ChangeLog) Record(format string, args ...any) {
	if l == nil {
		return
	}
	line := fmt.Sprintf("[%s] %s\n", l.now().Format(logStampLayout), fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.echo, line) //nolint:errcheck
	if l.f == nil || l.err != nil {
		return
	}
	if _, err := l.w.WriteString(line); err != nil {
		l.err = err
		return
	}
	l.err = l.w.Flush()
}

// Err returns the first write failure, if any.
func (l *ChangeLog) Err() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close writes the closing banner and closes the file.  Later calls
// return nil.
func (l *ChangeLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	done := l.f == nil
	l.mu.Unlock()
	if done {
		return nil
	}

	l.Record("%s", strings.Repeat("=", logRule))
	l.Record("Settings log ended")

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.f.Close()
	l.f = nil
	if l.err != nil {
		return l.err
	}
	return err
}
