package main

import (
	"os"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	debug      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "webhook-service",
		Short:        "Translates work item descriptions on Azure DevOps service hook events",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to an optional YAML configuration file; environment variables override it")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	root.AddCommand(newRunCommand(opts), newCheckCommand(opts))
	return root
}
