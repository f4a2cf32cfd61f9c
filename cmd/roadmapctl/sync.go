package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync <roadmap-id>",
	Short: "Fetch roadmap items, syncing from the external tracker if stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		asJSON, _ := cmd.Flags().GetBool("json")

		result, err := eng.GetItems(cmd.Context(), args[0], force)
		if err != nil {
			return err
		}

		if result.Warning != "" {
			fmt.Fprintln(os.Stderr, "Warning:", result.Warning)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Items)
		}

		for _, item := range result.Items {
			fmt.Printf("%-8s %-12s %-10s  %s\n",
				item.ID, item.Disposition, item.EndDate, item.Title)
		}
		fmt.Printf("\n%d items", len(result.Items))
		if result.Stale {
			fmt.Print(" (stale)")
		}
		if result.Truncated {
			fmt.Print(" (truncated)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("force", false, "sync even if the snapshot is fresh")
	syncCmd.Flags().Bool("json", false, "print items as JSON")
}
