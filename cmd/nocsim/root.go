package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nocsim",
	Short: "nocsim simulates flits travelling on a network-on-chip.",
	Long: `nocsim simulates flits travelling on a mesh or torus ` +
		`network-on-chip with dimension-order or adaptive routing. ` +
		`Settings come from a TOML file named by --config or by the ` +
		`NOCSIM_CONFIG variable, which may be set in a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadDotEnv(".env")
	},
}

// loadDotEnv reads environment variables from a file, if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
