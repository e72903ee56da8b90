package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/myshell/core"
	"github.com/josephlewis42/myshell/core/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func loadConfig() (*config.Configuration, error) {
	path := config.DefaultPath()
	configuration, err := config.Load(afero.NewOsFs(), path)

	if errors.Is(err, fs.ErrPermission) {
		log.Printf("Couldn't read config %q", path)
	}

	return configuration, err
}

// exitCode is the status of the last interactive session.
var exitCode int

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "myshell",
	Short: "A small interactive shell",
	Long: `An interactive shell with line editing, history, pipelines, file
redirection and background jobs.

Configuration is read from $MYSHELL_CONFIG or ~/.myshell.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		session, err := core.NewSession(configuration, os.Stdin, os.Stdout, os.Stderr)
		if err != nil {
			return err
		}
		defer session.Close()

		exitCode = session.Run()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitCode)
}
