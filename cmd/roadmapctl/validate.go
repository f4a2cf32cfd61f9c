package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config.json>",
	Short: "Dry-run a datasource configuration against the tracker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = os.Getenv("ROADMAP_TOKEN")
		}

		raw, err := readConfigFile(args[0])
		if err != nil {
			return err
		}

		warnings, err := eng.ValidateConfig(cmd.Context(), raw, token)
		if err != nil {
			return err
		}

		if len(warnings) == 0 {
			fmt.Println("Configuration looks good: no warnings.")
			return nil
		}
		for _, w := range warnings {
			fmt.Println("-", w)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("token", "", "access token (defaults to $ROADMAP_TOKEN)")
}

// readConfigFile decodes a JSON datasource configuration file into the raw
// map shape the normalizer accepts.
func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return raw, nil
}
