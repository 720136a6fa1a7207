// Package cmd wires up the CLI flags and dispatches to the menu or a
// single module.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"socklab/config"
	"socklab/internal/console"
	"socklab/internal/core"
	"socklab/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X socklab/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// stdout is where help, version and dry-run output go.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// flags holds the raw flag values.  Only flags the user actually set
// are applied, so the file and environment layers are not clobbered
// by flag defaults.
type flags struct {
	timeout     float64
	sendBuffer  int
	recvBuffer  int
	nonBlocking bool
	echoPort    int
	chatPort    int
	ntpServer   string
	logDir      string
	logFile     string
}

// Execute parses args and runs the menu, or the module named by the
// single positional argument.
//
// Precedence: flags > SOCKLAB_* environment > config file > defaults.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Defaults()
	var f flags
	fs := flag.NewFlagSet("socklab", flag.ContinueOnError)

	// ── sockets ──────────────────────────────────────────────────
	fs.Float64VarP(&f.timeout, "timeout", "t", 0, "Socket timeout in seconds (0 = blocking)")
	fs.IntVar(&f.sendBuffer, "send-buffer", cfg.Socket.SendBuffer, "Send buffer size in bytes (1024-65536)")
	fs.IntVar(&f.recvBuffer, "recv-buffer", cfg.Socket.RecvBuffer, "Receive buffer size in bytes (1024-65536)")
	fs.BoolVar(&f.nonBlocking, "non-blocking", false, "Start in non-blocking mode")

	// ── modules ──────────────────────────────────────────────────
	fs.IntVar(&f.echoPort, "echo-port", 0, "Echo test port (asked if 0)")
	fs.IntVar(&f.chatPort, "chat-port", cfg.ChatPort, "Default chat port")
	fs.StringVar(&f.ntpServer, "ntp-server", cfg.NTPServer, "SNTP server for the time check")

	// ── files ────────────────────────────────────────────────────
	fs.StringVarP(&cfg.ConfigPath, "config", "f", os.Getenv(config.EnvConfigPath), "YAML config file")
	fs.StringVar(&f.logDir, "log-dir", cfg.LogDir, "Directory for chat and settings logs")
	fs.StringVar(&f.logFile, "log-file", "", "Write a rotated JSON diagnostic log here")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate the configuration, print it and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "socklab %s\n", version)
		return nil
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.Module = rest[0]
	default:
		return fmt.Errorf("too many arguments: expected at most one module name")
	}

	// ── layer the sources ────────────────────────────────────────
	if err := config.LoadFile(cfg.ConfigPath, cfg); err != nil {
		return err
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return err
	}
	if err := applyFlags(fs, &f, cfg); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		printConfig(cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	if cfg.LogFile != "" {
		logger.SetFile(cfg.LogFile, cfg.LogMaxSizeMB)
	}
	defer logger.Close() //nolint:errcheck
	logger.Verbose("socket settings: %s", cfg.Socket)

	env := &core.Env{Config: cfg, Console: console.Std(), Logger: logger}
	if cfg.Module != "" {
		return core.RunModule(ctx, env, cfg.Module)
	}
	return (&core.Menu{Env: env}).Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func applyFlags(fs *flag.FlagSet, f *flags, cfg *config.Config) error {
	if fs.Changed("timeout") {
		d, err := config.Seconds(f.timeout)
		if err != nil {
			return err
		}
		if cfg.Socket, err = cfg.Socket.WithTimeout(d); err != nil {
			return err
		}
	}
	if fs.Changed("send-buffer") || fs.Changed("recv-buffer") {
		send, recv := cfg.Socket.SendBuffer, cfg.Socket.RecvBuffer
		if fs.Changed("send-buffer") {
			send = f.sendBuffer
		}
		if fs.Changed("recv-buffer") {
			recv = f.recvBuffer
		}
		next, err := cfg.Socket.WithBuffers(send, recv)
		if err != nil {
			return err
		}
		cfg.Socket = next
	}
	if fs.Changed("non-blocking") {
		cfg.Socket = cfg.Socket.WithBlocking(!f.nonBlocking)
	}
	if fs.Changed("echo-port") {
		cfg.EchoPort = f.echoPort
	}
	if fs.Changed("chat-port") {
		cfg.ChatPort = f.chatPort
	}
	if fs.Changed("ntp-server") {
		cfg.NTPServer = f.ntpServer
	}
	if fs.Changed("log-dir") {
		cfg.LogDir = f.logDir
	}
	if fs.Changed("log-file") {
		cfg.LogFile = f.logFile
	}
	return nil
}

func printConfig(cfg *config.Config) {
	module := cfg.Module
	if module == "" {
		module = "(menu)"
	}
	echoPort := "(ask)"
	if cfg.EchoPort != 0 {
		echoPort = fmt.Sprint(cfg.EchoPort)
	}
	fmt.Fprintf(stdout, `Configuration OK
  module:      %s
  timeout:     %s
  buffers:     send %d, receive %d
  mode:        %s
  echo:        %s port %s
  chat:        %s port %d
  ntp server:  %s
  log dir:     %s
`, module, cfg.Socket.TimeoutString(), cfg.Socket.SendBuffer, cfg.Socket.RecvBuffer,
		cfg.Socket.ModeString(), cfg.EchoHost, echoPort, cfg.ChatHost, cfg.ChatPort,
		cfg.NTPServer, cfg.LogDir)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `socklab - Socket Programming Utility v%s

Interactive socket toolkit: machine info, loopback echo test, SNTP
time check, two-party chat and a socket settings sandbox.

Usage:
  socklab [options]               Main menu
  socklab [options] <module>      Run one module and exit

Modules:
  1, info        Machine info
  2, echo        Loopback echo test
  3, sntp        SNTP time check
  4, chat        Two-party chat
  5, settings    Socket settings

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  socklab                                     Main menu
  socklab --echo-port 9000 echo               Echo test on port 9000
  socklab -t 5 sntp                           Time check with a 5s timeout
  socklab --send-buffer 4096 --recv-buffer 4096 chat
  socklab -f socklab.yaml --dry-run           Check a config file

Environment:
  SOCKLAB_CONFIG, SOCKLAB_TIMEOUT, SOCKLAB_SEND_BUFFER, SOCKLAB_RECV_BUFFER,
  SOCKLAB_NON_BLOCKING, SOCKLAB_ECHO_PORT, SOCKLAB_CHAT_PORT, ...
`)
}
