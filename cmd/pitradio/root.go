package main

import (
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/pitradio/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pitradio",
		Short:         "Encode, decode and relay pit-to-car radio command lists",
		Version:       Version + " (" + GitCommit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "config file (.yaml, .yml or .toml)")

	root.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newReplCmd(),
		newServeCmd(),
		newPublishCmd(),
	)
	return root
}

// loadConfig reads --config, or returns defaults when it is unset.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
