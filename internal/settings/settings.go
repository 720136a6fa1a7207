// Package settings edits the shared socket configuration, logs every
// change to a per-session file and can try a connection with the
// current values.
package settings

import (
	"context"
	"strconv"
	"strings"
	"time"

	errs "socklab/internal/errors"
	"socklab/internal/session"
	"socklab/internal/sockconf"
	"socklab/util"
)

const (
	DefaultTestHost = "localhost"
	DefaultTestPort = 80
)

// ── Parsers ──────────────────────────────────────────────────────────

// ParseTimeout reads a timeout in seconds.  "0" means no timeout.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errs.Invalid("timeout", s, "not a number", "enter seconds, e.g. 2.5, or 0 for blocking")
	}
	return sockconf.Seconds(secs)
}

// ParseBuffers reads a send and a receive buffer size.  Both must be
// valid or neither is returned.
func ParseBuffers(send, recv string) (int, int, error) {
	s, err := parseBuffer("send buffer", send)
	if err != nil {
		return 0, 0, err
	}
	r, err := parseBuffer("receive buffer", recv)
	if err != nil {
		return 0, 0, err
	}
	return s, r, nil
}

func parseBuffer(field, in string) (int, error) {
	in = strings.TrimSpace(in)
	n, err := strconv.Atoi(in)
	if err != nil {
		return 0, errs.Invalid(field, in, "not a number", "")
	}
	if err := sockconf.ValidateBuffer(field, n); err != nil {
		return 0, err
	}
	return n, nil
}

// ParseBlocking accepts true/false, yes/no and 1/0 in any case.
func ParseBlocking(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, errs.Invalid("blocking mode", s, "expected true or false", "")
}

// ── Editor ───────────────────────────────────────────────────────────

// Editor applies validated edits to a shared configuration.  A
// rejected edit leaves the configuration untouched and is not logged.
type Editor struct {
	// TestHost and TestPort are the connection test defaults.
	TestHost string
	TestPort int

	cfg     *sockconf.Config
	log     *ChangeLog
	session session.Options
}

// NewEditor edits cfg in place.  log may be nil.
func NewEditor(cfg *sockconf.Config, log *ChangeLog, opts session.Options) *Editor {
	return &Editor{
		TestHost: DefaultTestHost,
		TestPort: DefaultTestPort,
		cfg:      cfg,
		log:      log,
		session:  opts,
	}
}

// Config returns the current values.
func (e *Editor) Config() sockconf.Config { return *e.cfg }

// SetTimeout parses and applies a timeout.
func (e *Editor) SetTimeout(input string) error {
	d, err := ParseTimeout(input)
	if err != nil {
		return err
	}
	next, err := e.cfg.WithTimeout(d)
	if err != nil {
		return err
	}
	*e.cfg = next
	if d == 0 {
		e.log.Record("Timeout changed to: %s", next.TimeoutString())
	} else {
		e.log.Record("Timeout changed to: %g seconds", d.Seconds())
	}
	return nil
}

// SetBuffers parses and applies both buffer sizes.
func (e *Editor) SetBuffers(send, recv string) error {
	s, r, err := ParseBuffers(send, recv)
	if err != nil {
		return err
	}
	next, err := e.cfg.WithBuffers(s, r)
	if err != nil {
		return err
	}
	*e.cfg = next
	e.log.Record("Buffer sizes changed - Send: %d bytes, Receive: %d bytes", s, r)
	return nil
}

// SetBlocking parses and applies the blocking mode.
func (e *Editor) SetBlocking(input string) error {
	on, err := ParseBlocking(input)
	if err != nil {
		return err
	}
	*e.cfg = e.cfg.WithBlocking(on)
	e.log.Record("Mode changed to: %s", e.cfg.ModeString())
	return nil
}

// Reset restores the startup defaults.
func (e *Editor) Reset() {
	*e.cfg = sockconf.Default()
	e.log.Record("Settings reset to default values")
}

// TestConnection opens a stream connection with the current settings
// and closes it again.  Empty host or port select the defaults.
func (e *Editor) TestConnection(ctx context.Context, host, port string) error {
	if host = strings.TrimSpace(host); host == "" {
		host = e.TestHost
	}
	p, err := util.ParsePort(strings.TrimSpace(port), e.TestPort)
	if err != nil {
		return err
	}
	address := util.FormatAddr(host, p)

	e.log.Record("Testing connection to %s", address)
	s, err := session.Connect(ctx, host, p, *e.cfg, e.session)
	if err != nil {
		e.log.Record("Connection failed to %s - Error: %v", address, err)
		return err
	}
	s.Close() //nolint:errcheck
	e.log.Record("Connection successful to %s", address)
	return nil
}
