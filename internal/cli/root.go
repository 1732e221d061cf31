// Package cli implements the chatflow command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "chatflow",
	Short: "Resumable conversational workflow engine",
	Long: `Chatflow runs tool-looping chat workflows over streaming language models,
persists suspended conversations and resumes them later.

Quick start:
  chatflow serve                        # Start the HTTP/websocket chat server
  chatflow threads list                 # List persisted conversations
  chatflow threads show <id>            # Print one conversation transcript
  chatflow threads export <id> -f yaml  # Export a conversation`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}
