package core

import (
	"fmt"

	"socklab/config"
	"socklab/internal/sntp"
)

// Build constructs the Mode for a module name.  Modes built here take
// a snapshot of the current socket configuration, so Build should be
// called right before Run.
func Build(name string, env *Env) (Mode, error) {
	cfg := env.Config
	switch name {
	case config.ModuleInfo:
		return &InfoMode{Console: env.Console}, nil
	case config.ModuleEcho:
		return &EchoMode{
			Console: env.Console,
			Logger:  env.Logger,
			Socket:  cfg.Socket,
			Host:    cfg.EchoHost,
			Port:    cfg.EchoPort,
		}, nil
	case config.ModuleSNTP:
		return &SNTPMode{
			Console: env.Console,
			Client: &sntp.Client{
				Server: cfg.NTPServer,
				Socket: cfg.Socket,
				Logger: env.Logger,
			},
		}, nil
	case config.ModuleChat:
		return &ChatMode{
			Console: env.Console,
			Logger:  env.Logger,
			Socket:  cfg.Socket,
			Host:    cfg.ChatHost,
			Port:    cfg.ChatPort,
			LogDir:  cfg.LogDir,
		}, nil
	case config.ModuleSettings:
		return &SettingsMode{
			Console:  env.Console,
			Logger:   env.Logger,
			Socket:   &cfg.Socket,
			LogDir:   cfg.LogDir,
			TestHost: cfg.TestHost,
			TestPort: cfg.TestPort,
		}, nil
	}
	return nil, fmt.Errorf("unknown module %q", name)
}
