package config

// loader.go - configuration loading from a YAML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	errs "socklab/internal/errors"
	"socklab/internal/sockconf"
)

// ── Config file ──────────────────────────────────────────────────────

// fileConfig is the on-disk shape.  Pointers distinguish "absent"
// from a zero value.
type fileConfig struct {
	Timeout    *float64 `yaml:"timeout,omitempty"` // seconds, 0 = none
	SendBuffer int      `yaml:"sendBuffer,omitempty"`
	RecvBuffer int      `yaml:"recvBuffer,omitempty"`
	Blocking   *bool    `yaml:"blocking,omitempty"`

	NTPServer string       `yaml:"ntpServer,omitempty"`
	Echo      endpointFile `yaml:"echo,omitempty"`
	Chat      endpointFile `yaml:"chat,omitempty"`
	Test      endpointFile `yaml:"test,omitempty"`

	LogDir       string `yaml:"logDir,omitempty"`
	LogFile      string `yaml:"logFile,omitempty"`
	LogMaxSizeMB int    `yaml:"logMaxSizeMB,omitempty"`
	Verbose      int    `yaml:"verbose,omitempty"`
}

type endpointFile struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// LoadFile overlays the YAML file at path onto cfg.  A missing or
// empty file leaves cfg unchanged.
func LoadFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errs.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("unmarshal config %s: %w", path, err)
	}

	if fc.Timeout != nil {
		d, err := Seconds(*fc.Timeout)
		if err != nil {
			return err
		}
		cfg.Socket, _ = cfg.Socket.WithTimeout(d)
	}
	if fc.SendBuffer != 0 {
		cfg.Socket.SendBuffer = fc.SendBuffer
	}
	if fc.RecvBuffer != 0 {
		cfg.Socket.RecvBuffer = fc.RecvBuffer
	}
	if fc.Blocking != nil {
		cfg.Socket.Blocking = *fc.Blocking
	}
	setString(&cfg.NTPServer, fc.NTPServer)
	setString(&cfg.EchoHost, fc.Echo.Host)
	setInt(&cfg.EchoPort, fc.Echo.Port)
	setString(&cfg.ChatHost, fc.Chat.Host)
	setInt(&cfg.ChatPort, fc.Chat.Port)
	setString(&cfg.TestHost, fc.Test.Host)
	setInt(&cfg.TestPort, fc.Test.Port)
	setString(&cfg.LogDir, fc.LogDir)
	setString(&cfg.LogFile, fc.LogFile)
	setInt(&cfg.LogMaxSizeMB, fc.LogMaxSizeMB)
	setInt(&cfg.Verbose, fc.Verbose)
	return nil
}

// Seconds converts a timeout in seconds to a duration.
func Seconds(secs float64) (time.Duration, error) { return sockconf.Seconds(secs) }

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the SOCKLAB_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// EnvConfigPath names the config file when --config is not given.
const EnvConfigPath = "SOCKLAB_CONFIG"

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Malformed numbers are
// reported rather than ignored.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("SOCKLAB_TIMEOUT"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errs.Invalid("SOCKLAB_TIMEOUT", v, "not a number", "")
		}
		d, err := Seconds(secs)
		if err != nil {
			return err
		}
		cfg.Socket, _ = cfg.Socket.WithTimeout(d)
	}
	for _, e := range []struct {
		key string
		dst *int
	}{
		{"SOCKLAB_SEND_BUFFER", &cfg.Socket.SendBuffer},
		{"SOCKLAB_RECV_BUFFER", &cfg.Socket.RecvBuffer},
		{"SOCKLAB_ECHO_PORT", &cfg.EchoPort},
		{"SOCKLAB_CHAT_PORT", &cfg.ChatPort},
		{"SOCKLAB_VERBOSE", &cfg.Verbose},
	} {
		if err := envInt(e.key, e.dst); err != nil {
			return err
		}
	}
	if envBool("SOCKLAB_NON_BLOCKING") {
		cfg.Socket.Blocking = false
	}

	setString(&cfg.NTPServer, os.Getenv("SOCKLAB_NTP_SERVER"))
	setString(&cfg.EchoHost, os.Getenv("SOCKLAB_ECHO_HOST"))
	setString(&cfg.ChatHost, os.Getenv("SOCKLAB_CHAT_HOST"))
	setString(&cfg.LogDir, os.Getenv("SOCKLAB_LOG_DIR"))
	setString(&cfg.LogFile, os.Getenv("SOCKLAB_LOG_FILE"))
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errs.Invalid(key, v, "not an integer", "")
	}
	*dst = n
	return nil
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
