package core

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"socklab/config"
	"socklab/internal/chat"
	"socklab/internal/console"
	"socklab/internal/echo"
	errs "socklab/internal/errors"
	"socklab/internal/machine"
	"socklab/internal/metrics"
	"socklab/internal/session"
	"socklab/internal/settings"
	"socklab/internal/sntp"
	"socklab/internal/sockconf"
	"socklab/util"
)

// ErrEchoMismatch is returned when the echo test completes without
// getting its own message back.
var ErrEchoMismatch = errs.New("echo test failed")

// ── Machine info ─────────────────────────────────────────────────────

// InfoMode prints the host name, its addresses, the OS and the
// network interfaces.
type InfoMode struct {
	Console *console.Console
}

func (m *InfoMode) Run(ctx context.Context) error {
	info, err := machine.Collect(ctx)
	if err != nil {
		return err
	}
	con := m.Console
	con.Table(nil, [][]string{
		{"Host Name:", info.Hostname},
		{"All IP Addresses:", strings.Join(info.Addresses, ", ")},
		{"System:", info.System},
		{"Node:", info.Platform},
	})
	con.Println("Network Interfaces:")
	if len(info.Interfaces) == 0 {
		con.Println("  (Interface listing not available on this system)")
		con.Printf("  Hostname: %s\n", info.Hostname)
	} else {
		rows := make([][]string, 0, len(info.Interfaces))
		for _, ifc := range info.Interfaces {
			rows = append(rows, []string{strconv.Itoa(ifc.Index), ifc.Name, strings.Join(ifc.Addrs, " ")})
		}
		con.Table([]string{"Index", "Name", "Addresses"}, rows)
	}
	for _, w := range info.Warnings {
		con.Warning("%s", w)
	}
	return nil
}

// ── Echo test ────────────────────────────────────────────────────────

// EchoMode runs the loopback echo test with the current settings.
type EchoMode struct {
	Console *console.Console
	Logger  *util.Logger
	Socket  sockconf.Config
	Host    string
	Port    int // 0 → ask
}

func (m *EchoMode) Run(ctx context.Context) error {
	con := m.Console
	showSocket(con, m.Socket)

	port := m.Port
	if port == 0 {
		in, err := con.Ask(ctx, "Enter port number: ", "")
		if err != nil {
			return err
		}
		if port, err = util.ParsePort(in, 0); err != nil {
			return err
		}
	}

	mc := metrics.New()
	logger := m.Logger.With("run", mc.ID())
	con.Println("\nStarting server...")
	res, err := echo.Run(ctx, echo.Options{
		Host:     m.Host,
		Port:     port,
		Socket:   m.Socket,
		Session:  session.Options{Logger: logger, Metrics: mc},
		Progress: func(format string, args ...any) { con.Printf(format+"\n", args...) },
	})
	if err != nil {
		return err
	}
	if res.ServerErr != nil {
		con.Failure("Server error: %v", res.ServerErr)
	}
	if res.ClientErr != nil {
		con.Failure("Client error: %v", res.ClientErr)
	}
	report(logger, config.ModuleEcho, mc)

	if !res.Match {
		if res.ClientErr == nil {
			con.Failure("\nData mismatch!")
		}
		return ErrEchoMismatch
	}
	con.Success("\nConnection successful, data matches!")
	return nil
}

// ── SNTP ─────────────────────────────────────────────────────────────

// SNTPMode compares the local clock with a time server.
type SNTPMode struct {
	Console *console.Console
	Client  *sntp.Client
}

func (m *SNTPMode) Run(ctx context.Context) error {
	con := m.Console
	server := m.Client.Server
	if server == "" {
		server = sntp.DefaultServer
	}
	con.Printf("Requesting time from %s...\n", server)

	res, err := m.Client.Query(ctx)
	if err != nil {
		return err
	}
	con.Println()
	con.Table(nil, [][]string{
		{"NTP Time:", res.ServerTime.Local().Format(time.ANSIC)},
		{"Local Time:", res.LocalTime.Local().Format(time.ANSIC)},
		{"Offset:", fmt.Sprintf("%.2f seconds", res.Offset.Seconds())},
	})
	return nil
}

// ── Chat ─────────────────────────────────────────────────────────────

// ChatMode asks for a role and runs one chat.
type ChatMode struct {
	Console *console.Console
	Logger  *util.Logger
	Socket  sockconf.Config
	Host    string
	Port    int
	LogDir  string
}

func (m *ChatMode) Run(ctx context.Context) error {
	con := m.Console
	role, err := con.Ask(ctx, "Choose mode (server/client): ", "")
	if err != nil {
		return err
	}

	mc := metrics.New()
	logger := m.Logger.With("run", mc.ID())
	opts := chat.Options{
		Socket:  m.Socket,
		Session: session.Options{Logger: logger, Metrics: mc},
		Input:   con.Lines(),
		Display: func(from chat.Role, msg string) { con.Printf("%s: %s\n", from, msg) },
		LogDir:  m.LogDir,
		Connected: func(peer net.Addr) {
			con.Printf("Connected: %s\n", peer)
			con.Printf("Type a message and press Enter, %s to leave.\n\n", chat.QuitCommand)
		},
	}

	switch strings.ToLower(role) {
	case "server":
		port, err := m.askPort(ctx)
		if err != nil {
			return err
		}
		opts.Listening = func(addr net.Addr) { con.Printf("Server waiting on %s\n", addr) }
		err = chat.RunServer(ctx, m.Host, port, opts)
		report(logger, config.ModuleChat, mc)
		return err

	case "client":
		host, err := con.Ask(ctx, "Host (default "+m.Host+"): ", m.Host)
		if err != nil {
			return err
		}
		port, err := m.askPort(ctx)
		if err != nil {
			return err
		}
		path, err := chat.RunClient(ctx, host, port, opts)
		if path != "" {
			con.Printf("\nChat saved to log file %s\n", path)
		}
		report(logger, config.ModuleChat, mc)
		return err
	}
	return errs.Invalid("mode", role, "expected server or client", "")
}

func (m *ChatMode) askPort(ctx context.Context) (int, error) {
	in, err := m.Console.Ask(ctx, "Port (default "+strconv.Itoa(m.Port)+"): ", "")
	if err != nil {
		return 0, err
	}
	return util.ParsePort(in, m.Port)
}

// ── Settings ─────────────────────────────────────────────────────────

// SettingsMode edits the shared socket configuration.
type SettingsMode struct {
	Console  *console.Console
	Logger   *util.Logger
	Socket   *sockconf.Config
	LogDir   string
	TestHost string
	TestPort int
}

func (m *SettingsMode) Run(ctx context.Context) error {
	con := m.Console
	log, err := settings.OpenChangeLog(m.LogDir, nil, con)
	if err != nil {
		return err
	}

	ed := settings.NewEditor(m.Socket, log, session.Options{Logger: m.Logger})
	if m.TestHost != "" {
		ed.TestHost = m.TestHost
	}
	if m.TestPort != 0 {
		ed.TestPort = m.TestPort
	}
	runErr := ed.Run(ctx, con)

	if err := log.Close(); err != nil {
		m.Logger.Warn("settings log: %v", err)
	}
	con.Success("\nSettings saved to: %s", log.Path())
	m.Logger.Verbose("socket settings now %s", m.Socket)

	if errs.Is(runErr, io.EOF) {
		return nil
	}
	return runErr
}

// ── helpers ──────────────────────────────────────────────────────────

// report logs a run's counters: one line normally, the full snapshot
// at debug level.
func report(logger *util.Logger, module string, mc *metrics.Collector) {
	logger.Info("%s: %s", module, mc.Snapshot().Summary())
	logger.Debug("%s metrics:\n%s", module, mc.JSON())
}

func showSocket(con *console.Console, cfg sockconf.Config) {
	con.Table(nil, [][]string{
		{"Timeout:", cfg.TimeoutString()},
		{"Send Buffer:", strconv.Itoa(cfg.SendBuffer) + " bytes"},
		{"Receive Buffer:", strconv.Itoa(cfg.RecvBuffer) + " bytes"},
		{"Mode:", cfg.ModeString()},
	})
}
