package cmd

import (
	"log"

	"github.com/josephlewis42/myshell/core/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// initCmd writes the default configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to $MYSHELL_CONFIG or ~/.myshell.yaml.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		logger := log.New(cmd.ErrOrStderr(), "", 0)

		return config.Initialize(afero.NewOsFs(), config.DefaultPath(), logger)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
