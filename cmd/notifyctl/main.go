// notifyctl inspects and operates the dashboard notification collection
// from a terminal, using the same store configuration as the service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/taxpilot/dashboard-notifications/internal/config"
	"github.com/taxpilot/dashboard-notifications/internal/repository"
	"go.uber.org/zap"
)

var (
	configDir string
	verbose   bool

	cfg    *config.Config
	logger = zap.NewNop()

	// openStore is swapped in tests.
	openStore = repository.New
)

var rootCmd = &cobra.Command{
	Use:   "notifyctl",
	Short: "Inspect and operate dashboard notifications",
	Long: `notifyctl reads app.yaml and .env the way the notification service does
and talks to the same realtime store and queues.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding app.yaml and .env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(summaryCmd, markReadCmd, emitCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(configDir + "/.env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}
	if err := config.Init(configDir); err != nil {
		return fmt.Errorf("loading app.yaml: %w", err)
	}

	c, err := config.Get()
	if err != nil {
		return err
	}
	cfg = c

	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
