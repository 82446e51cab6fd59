package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	chatService "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
)

// showCmd prints an exported transcript
var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a previously exported transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		meta, messages, err := chatService.ParseExport(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "temperature: %.2f\n", meta.LLMTemperature)
		fmt.Fprintf(out, "role:\n%s\n\n", meta.LLMRole)
		for _, msg := range messages {
			fmt.Fprintf(out, "%s: %s\n", msg.Role, msg.Content)
		}
		return nil
	},
}
