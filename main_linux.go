//go:build linux

package main

import "os"

func main() {
	opts, code, exit := parseArgs(os.Args[1:], os.Stdout, os.Stderr)
	if exit {
		os.Exit(code)
	}
	os.Exit(run(opts))
}
