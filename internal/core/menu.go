package core

import (
	"context"
	"strconv"

	"socklab/config"
	"socklab/internal/console"
)

const invalidChoice = "Invalid input! Please enter a number between 0 and 5."

// Menu is the interactive main loop.
type Menu struct {
	Env *Env
}

// Run shows the main menu until the user picks Exit, input ends or
// ctx is cancelled.  A failing module is reported and the menu is
// shown again.
func (m *Menu) Run(ctx context.Context) error {
	con := m.Env.Console
	for {
		m.show()
		choice, err := m.choose(ctx)
		if err != nil {
			// end of input or interrupt
			con.Println()
			return nil
		}
		if choice == 0 {
			con.Println("\nThank you for using the program!")
			return nil
		}

		name := config.Modules[choice-1]
		con.Clear()
		con.Printf(">>> Running Module %d: %s <<<\n\n", choice, Title(name))
		if err := RunModule(ctx, m.Env, name); err != nil && ctx.Err() == nil {
			con.Failure("Error: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		con.Pause(ctx, console.PressEnter)
	}
}

// choose prompts until it gets a number in range.
func (m *Menu) choose(ctx context.Context) (int, error) {
	con := m.Env.Console
	for {
		in, err := con.Ask(ctx, "Enter your choice (0-5): ", "")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(in)
		if err == nil && n >= 0 && n <= len(config.Modules) {
			return n, nil
		}
		con.Failure(invalidChoice)
	}
}

func (m *Menu) show() {
	con := m.Env.Console
	con.Header()
	con.Section("MAIN MENU")
	rows := make([][]string, 0, len(config.Modules)+1)
	for i, name := range config.Modules {
		rows = append(rows, []string{"[" + strconv.Itoa(i+1) + "]", "Module " + strconv.Itoa(i+1) + " - " + Title(name)})
	}
	rows = append(rows, []string{"[0]", "Exit Program"})
	con.Table(nil, rows)
}

// RunModule builds and runs a single module against env.
func RunModule(ctx context.Context, env *Env, name string) error {
	mode, err := Build(name, env)
	if err != nil {
		return err
	}
	env.Logger.Verbose("module %s starting", name)
	err = mode.Run(ctx)
	env.Logger.Verbose("module %s finished: %v", name, err)
	return err
}
