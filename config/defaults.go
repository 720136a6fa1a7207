package config

import "socklab/internal/sockconf"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultHost is where the echo test and chat client connect.
	DefaultHost = "localhost"

	// DefaultChatPort is the chat server port.
	DefaultChatPort = 5000

	// DefaultNTPServer is the SNTP server queried by the time check.
	DefaultNTPServer = "0.uk.pool.ntp.org"

	// DefaultTestPort is the settings connection test target port.
	DefaultTestPort = 80

	// DefaultLogDir is where chat and settings logs are written.
	DefaultLogDir = "."

	// DefaultLogMaxSizeMB rotates the diagnostic log at this size.
	DefaultLogMaxSizeMB = 10
)

// Defaults returns a Config populated with the startup values.
func Defaults() *Config {
	return &Config{
		Socket:       sockconf.Default(),
		EchoHost:     DefaultHost,
		ChatHost:     DefaultHost,
		ChatPort:     DefaultChatPort,
		NTPServer:    DefaultNTPServer,
		TestHost:     DefaultHost,
		TestPort:     DefaultTestPort,
		LogDir:       DefaultLogDir,
		LogMaxSizeMB: DefaultLogMaxSizeMB,
	}
}
