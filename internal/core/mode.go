// Package core is the orchestration layer.  It composes sessions,
// the console and the shared configuration into the five menu modules
// and provides the builder and the menu loop that dispatch to them.
//
// Architecture layers (bottom → top):
//
//	sockconf  →  transport  →  session  →  echo/chat/sntp/settings  →  core  →  cmd (CLI)
package core

import (
	"context"

	"socklab/config"
	"socklab/internal/console"
	"socklab/util"
)

// Mode is one menu module.  Each mode owns its full lifecycle from
// prompting for input to closing every socket it opened.
type Mode interface {
	Run(ctx context.Context) error
}

// Env is what every mode needs from the process.  Config.Socket is
// the shared socket configuration: modes copy it when they are built,
// the settings mode edits it in place.
type Env struct {
	Config  *config.Config
	Console *console.Console
	Logger  *util.Logger
}

// Title returns the menu label of a module.
func Title(name string) string {
	switch name {
	case config.ModuleInfo:
		return "Machine Info"
	case config.ModuleEcho:
		return "Echo Test"
	case config.ModuleSNTP:
		return "SNTP Time Check"
	case config.ModuleChat:
		return "Chat"
	case config.ModuleSettings:
		return "Socket Settings"
	}
	return name
}
