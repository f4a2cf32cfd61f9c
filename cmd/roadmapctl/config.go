package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage per-roadmap datasource configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set <roadmap-id> <config.json>",
	Short: "Save a datasource configuration for a roadmap",
	Long: "Save a datasource configuration. Saving clears any cached " +
		"snapshot, so the next sync runs under the new configuration. An " +
		"empty --token keeps the previously stored credential.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")

		raw, err := readConfigFile(args[1])
		if err != nil {
			return err
		}

		cfg, err := eng.SaveConfig(cmd.Context(), args[0], raw, token)
		if err != nil {
			return err
		}

		fmt.Printf("Saved %s datasource for roadmap %s\n", cfg.Kind, args[0])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show <roadmap-id>",
	Short: "Show a roadmap's datasource status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := eng.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Println("Kind:      ", status.Kind)
		fmt.Println("Credential:", yesNo(status.HasSecret))
		if status.SnapshotCapturedAt != nil {
			fmt.Println("Snapshot:  ", status.SnapshotCapturedAt.Local())
		} else {
			fmt.Println("Snapshot:   none")
		}
		if status.LastSyncAt != nil {
			fmt.Println("Last sync: ", status.LastSyncAt.Local())
			fmt.Printf("            %d items in %dms\n",
				status.LastSyncItemCount, status.LastSyncDurationMs)
		}
		if status.LastSyncError != "" {
			fmt.Println("Last error:", status.LastSyncError)
		}
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	configSetCmd.Flags().String("token", "", "access token to store (empty keeps existing)")
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}
