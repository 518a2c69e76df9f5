package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/vburojevic/fcdbg/internal/cli"
	"github.com/vburojevic/fcdbg/internal/config"
)

const quickStart = `fcdbg - debug-session orchestration for flight-control firmware

Quick start:
  fcdbg launch arduplane                Launch a simulated debug session
  fcdbg launch arduplane --hardware     Debug on real hardware (OpenOCD/J-Link)
  fcdbg sessions                        List live sessions
  fcdbg teardown SESSION                Tear one session down
  fcdbg cleanup                         Kill every fcdbg session

For help:
  fcdbg --help                          All commands and flags
  fcdbg doctor                          Check required external tools
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing
	// These will be overridden by CLI flags if specified
	vars := kong.Vars{
		"config_format":   cfg.Format,
		"config_board":    cfg.Defaults.Board,
		"config_sim_cmd":  cfg.Defaults.SimulationCmd,
		"config_work_dir": cfg.Defaults.WorkDir,
		"config_server":   cfg.Defaults.PreferredServer,
	}

	ctx := kong.Parse(&c,
		kong.Name("fcdbg"),
		kong.Description("fcdbg: launch, supervise and tear down firmware debug sessions\n\nOutput is ndjson when stdout is not a terminal, so editor integrations can parse it"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	// Create globals with config fallbacks
	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	if err != nil {
		os.Exit(1)
	}
}
