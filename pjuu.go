package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pjuu/client/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:     "pjuu",
		Usage:    "Vote, post and manage alerts on a Pjuu site from the command line",
		Version:  version,
		Flags:    cmd.GlobalFlags(),
		Before:   cmd.LoadEnv,
		Commands: cmd.Commands(),
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
