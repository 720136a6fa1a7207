package settings

import (
	"context"
	"strconv"

	"socklab/internal/console"
)

// Run shows the settings submenu until the user picks Back or input
// ends.  Rejected input is reported and the menu is shown again.
func (e *Editor) Run(ctx context.Context, con *console.Console) error {
	for {
		e.show(con)
		choice, err := con.Ask(ctx, "Enter choice: ", "")
		if err != nil {
			return err
		}

		var ok string
		switch choice {
		case "0":
			return nil
		case "1":
			in, err2 := con.Ask(ctx, "Enter timeout (seconds, 0 for blocking): ", "")
			if err2 != nil {
				return err2
			}
			err, ok = e.SetTimeout(in), "Timeout updated"
		case "2":
			send, err2 := con.Ask(ctx, "Send buffer size (1024-65536): ", "")
			if err2 != nil {
				return err2
			}
			recv, err2 := con.Ask(ctx, "Receive buffer size (1024-65536): ", "")
			if err2 != nil {
				return err2
			}
			err, ok = e.SetBuffers(send, recv), "Buffer sizes updated"
		case "3":
			in, err2 := con.Ask(ctx, "Blocking (true/false): ", "")
			if err2 != nil {
				return err2
			}
			err, ok = e.SetBlocking(in), "Mode updated"
		case "4":
			host, err2 := con.Ask(ctx, "Host (default "+e.TestHost+"): ", "")
			if err2 != nil {
				return err2
			}
			port, err2 := con.Ask(ctx, "Port (default "+strconv.Itoa(e.TestPort)+"): ", "")
			if err2 != nil {
				return err2
			}
			err, ok = e.TestConnection(ctx, host, port), "Connection successful!"
		case "5":
			e.Reset()
			ok = "Settings reset to default"
		default:
			con.Failure("Invalid choice!")
		}

		switch {
		case err != nil:
			con.Failure("%v", err)
		case ok != "":
			con.Success("%s", ok)
		}
		con.Pause(ctx, "Press Enter to continue...")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (e *Editor) show(con *console.Console) {
	cfg := e.Config()
	con.Clear()
	con.Section("SOCKET SETTINGS")
	con.Println("Current Settings:")
	con.Table(nil, [][]string{
		{"Timeout:", cfg.TimeoutString()},
		{"Send Buffer:", strconv.Itoa(cfg.SendBuffer) + " bytes"},
		{"Receive Buffer:", strconv.Itoa(cfg.RecvBuffer) + " bytes"},
		{"Mode:", cfg.ModeString()},
	})
	con.Println("Options:")
	con.Table(nil, [][]string{
		{"[1]", "Set Timeout"},
		{"[2]", "Set Buffer Size"},
		{"[3]", "Set Blocking Mode"},
		{"[4]", "Test Connection"},
		{"[5]", "Reset to Default"},
		{"[0]", "Back"},
	})
}
