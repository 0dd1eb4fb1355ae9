package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "pflow runs flow-based programming networks",
		Long: `pflow wires components into a network of bounded, typed connections
and runs every component concurrently until the network goes quiet.

Networks are described in JSON or YAML files; see "pflow validate".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error (env "+envLogLevel+")")
	root.PersistentFlags().String("log-format", "text", "Log format: text or json (env "+envLogFormat+")")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newComponentsCmd(),
		newVersionCmd(),
	)
	return root
}
