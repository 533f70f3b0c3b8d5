package main

import (
	"os"

	"github.com/grovetools/dock/cli"
	"github.com/grovetools/dock/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		_ = cli.NewErrorHandler(cli.GetOptions(rootCmd).Verbose).Handle(err)
		os.Exit(1)
	}
}
