package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doeshing/gadget-go/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	opts := globalOptions(os.Args[1:])

	root, cleanup, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer func() {
		if err := cleanup(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// globalOptions reads the flags the container needs before cobra parses
// anything. Cobra still declares them so help and validation stay accurate.
func globalOptions(args []string) cli.Options {
	opts := cli.Options{Verbose: isVerbose()}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return opts
		case arg == "-v" || arg == "--verbose":
			opts.Verbose = true
		case arg == "--config" && i+1 < len(args):
			opts.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			opts.ConfigPath = strings.TrimPrefix(arg, "--config=")
		}
	}
	return opts
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("GADGET_DEBUG"), "1") || strings.EqualFold(os.Getenv("GADGET_DEBUG"), "true")
}
