// Command ledgerctl edits the ledger store directly from a terminal.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	Register(commander)
	flag.Parse()

	cfg, _ := cli.Bootstrap(applog.ComponentCLI)
	// Logs go to stderr so command output stays pipeable.
	level, _ := applog.ParseLevel(cfg.LogLevel)
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	applog.Setup(applog.Config{Level: level, Format: cfg.LogFormat, Component: applog.ComponentCLI, Output: os.Stderr})

	ctx, stop := cli.GracefulShutdown()
	res := cli.OpenBackend(slog.Default(), cfg)

	a, err := newApp(ctx, res.Store, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		res.Close()
		stop()
		os.Exit(int(subcommands.ExitFailure))
	}

	status := commander.Execute(ctx, a)
	if err := res.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close storage:", err)
	}
	stop()
	os.Exit(int(status))
}
