package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cardforge",
	Short: "A CLI tool for producing print-ready proxy card pages",
	Long: `CardForge renders tabletop card artwork into print-ready sheets:
it synthesizes bleed borders around arbitrary card images, composes them
onto pages with cut guides and registration marks, and exports the result
as PNG pages or a single PDF.`,
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
}
