// Package config defines the runtime configuration for socklab: the
// socket settings every module shares, per-module defaults and where
// logs are written.
package config

import (
	"fmt"
	"strings"

	errs "socklab/internal/errors"
	"socklab/internal/sockconf"
	"socklab/util"
)

// Config holds every tuneable for one socklab process.
type Config struct {
	// ── Sockets ──────────────────────────────────────────────────────
	Socket sockconf.Config

	// ── Modules ──────────────────────────────────────────────────────
	Module    string // run only this module, then exit
	EchoHost  string
	EchoPort  int // 0 → ask
	ChatHost  string
	ChatPort  int
	NTPServer string
	TestHost  string // settings connection test
	TestPort  int

	// ── Files ────────────────────────────────────────────────────────
	ConfigPath   string // YAML file, optional
	LogDir       string // chat and settings logs
	LogFile      string // diagnostic log, JSON, rotated
	LogMaxSizeMB int

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// ── Modules ──────────────────────────────────────────────────────────

// Module names in menu order.
const (
	ModuleInfo     = "info"
	ModuleEcho     = "echo"
	ModuleSNTP     = "sntp"
	ModuleChat     = "chat"
	ModuleSettings = "settings"
)

// Modules lists the module names; entry i is menu option i+1.
var Modules = []string{ModuleInfo, ModuleEcho, ModuleSNTP, ModuleChat, ModuleSettings} //nolint:gochecknoglobals

// ResolveModule accepts a module name or its menu number.
func ResolveModule(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range Modules {
		if s == name || s == fmt.Sprint(i+1) {
			return name, nil
		}
	}
	return "", errs.Invalid("module", s, "unknown module",
		"choose one of: "+strings.Join(Modules, ", "))
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.Socket.Validate(); err != nil {
		return err
	}
	if c.EchoPort != 0 {
		if err := validatePort("echo port", c.EchoPort); err != nil {
			return err
		}
	}
	if err := validatePort("chat port", c.ChatPort); err != nil {
		return err
	}
	if err := validatePort("test port", c.TestPort); err != nil {
		return err
	}
	if c.Module != "" {
		name, err := ResolveModule(c.Module)
		if err != nil {
			return err
		}
		c.Module = name
	}
	if c.LogMaxSizeMB < 0 {
		return errs.Invalid("log size", c.LogMaxSizeMB, "must not be negative", "")
	}
	return nil
}

func validatePort(field string, port int) error {
	if port < util.MinPort || port > util.MaxPort {
		return errs.Invalid(field, port,
			fmt.Sprintf("out of range %d-%d", util.MinPort, util.MaxPort), "")
	}
	return nil
}
