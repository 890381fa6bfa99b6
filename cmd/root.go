package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/Chative-Support-Router/pkg/config"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
)

var (
	envFile    string
	appVersion string
)

// Execute is the entry point called from main.go.
func Execute(version string) {
	appVersion = version

	rootCmd := &cobra.Command{
		Use:   "support-router",
		Short: "Customer service router with billing, technical and policy specialists",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configx.SetEnvFile(envFile)
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return fmt.Errorf("load log config: %w", err)
			}
			logx.Init(*logCfg)
			return nil
		},
		// No subcommand starts the HTTP server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default $ENV_FILE or ./.env)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), appVersion)
		},
	}
}
