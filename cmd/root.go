package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/minhvu/faceclock/internal/config"
	"github.com/minhvu/faceclock/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "faceclock",
	Short: "Face-recognition attendance tracking",
	Long: `Faceclock collects face samples, trains a recognition model and keeps
an attendance ledger. Recognition verifies a claimed identity against the
trained model before any check-in or check-out is recorded.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
	logger.Setup(config.Load().Log)
}
