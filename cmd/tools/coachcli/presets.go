package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
)

var catalogPath string

// presetsCmd lists presets and domains from the catalog
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the configured presets and domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := catalogPath
		if path == "" {
			path = os.Getenv("CATALOG_PATH")
		}
		store, err := persona.LoadCatalog(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Presets:")
		for _, p := range store.List() {
			var needs []string
			if p.RequiresDomain {
				needs = append(needs, "domain")
			}
			if p.RequiresDataset {
				needs = append(needs, "dataset")
			}
			line := fmt.Sprintf("  %-26s %s", p.ID, p.Name)
			if len(needs) > 0 {
				line += " (requires " + strings.Join(needs, ", ") + ")"
			}
			fmt.Fprintln(out, line)
		}

		fmt.Fprintln(out, "Domains:")
		for _, d := range store.Domains() {
			fmt.Fprintf(out, "  %-12s %s\n", d.Name, strings.Join(d.ActionableVars, ", "))
		}
		return nil
	},
}

func init() {
	presetsCmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog overlaying the built-in presets (default $CATALOG_PATH)")
}
