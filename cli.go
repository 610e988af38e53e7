package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

var version = "dev"

type options struct {
	configPath  string
	logPath     string
	doctor      bool
	listDevices bool
}

// parseArgs handles the informational flags itself. When exit is true the
// caller should exit with code without starting the daemon.
func parseArgs(args []string, stdout, stderr io.Writer) (opts options, code int, exit bool) {
	fs := pflag.NewFlagSet("tapvoice", pflag.ContinueOnError)
	// Errors and usage are printed here, not by pflag.
	fs.SetOutput(io.Discard)

	var showVersion, showHelp bool
	fs.BoolVarP(&showVersion, "version", "v", false, "print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "show this help and exit")
	fs.StringVar(&opts.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/tapvoice/config.yaml)")
	fs.StringVar(&opts.logPath, "logpath", "", "log directory (default: OS-specific location, use ./ for current dir)")
	fs.BoolVar(&opts.doctor, "doctor", false, "run interactive diagnostics and exit")
	fs.BoolVar(&opts.listDevices, "list-devices", false, "list capture devices and exit")
	usage := func(w io.Writer) {
		fmt.Fprintf(w, "Usage: tapvoice [flags]\n\nDouble-tap the hotkey to start or stop dictation.\n\nFlags:\n")
		fmt.Fprint(w, fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			usage(stdout)
			return opts, 0, true
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		usage(stderr)
		return opts, 1, true
	}

	switch {
	case showHelp:
		usage(stdout)
		return opts, 0, true
	case showVersion:
		fmt.Fprintf(stdout, "tapvoice %s\n", version)
		return opts, 0, true
	case fs.NArg() > 0:
		fmt.Fprintf(stderr, "Error: unexpected argument %q\n", fs.Arg(0))
		usage(stderr)
		return opts, 1, true
	}
	return opts, 0, false
}
