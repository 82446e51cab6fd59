// Command coachcli drives a coaching chat workspace from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "coachcli",
	Short: "Configure and chat with a health-coach chatbot from the terminal",
	Long: `coachcli builds a chat session from a coach preset, lets the operator edit the
role, temperature, domain and dataset, and exports the transcript as JSON Lines.

Available subcommands:
  chat    - Interactive chat workspace
  presets - List the configured presets and domains
  show    - Print a previously exported transcript`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; the environment may already be set.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log service activity to stderr")
	rootCmd.AddCommand(chatCmd, presetsCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
