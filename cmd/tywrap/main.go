// Command tywrap generates a strongly-typed TypeScript wrapper for a
// Python module (`generate`) and runs the boundary runtime that backs it
// (`serve`).
//
// Usage:
//
//	tywrap generate -module pkg [flags]
//	tywrap serve [flags]
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return nil
	}

	switch args[0] {
	case "-h", "--help", "help":
		usage()
		return nil
	case "-version", "--version", "version":
		fmt.Printf("tywrap %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	case "generate":
		return runGenerate(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `tywrap - boundary runtime and TypeScript generator for Python modules

Usage:
  tywrap generate -module NAME [flags]    Generate a TypeScript wrapper
  tywrap serve [flags]                    Run the boundary runtime
  tywrap version                          Show version information
  tywrap help                             Show this help

Run "tywrap generate -h" or "tywrap serve -h" for subcommand flags.
`)
}
