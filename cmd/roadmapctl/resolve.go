package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <record-url>",
	Short: "Parse a tracker record URL into connection settings",
	Long: "Parse a tracker UI URL into its organization endpoint, project, " +
		"and record id. With a token, also resolves the record's type and " +
		"area path to pre-fill a configuration.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = os.Getenv("ROADMAP_TOKEN")
		}

		resolved, err := eng.ResolveFromRecordURL(cmd.Context(), args[0], token)
		if err != nil {
			return err
		}

		fmt.Println("Endpoint:", resolved.EndpointURL)
		fmt.Println("Project: ", resolved.ProjectID)
		fmt.Println("Record:  ", resolved.RecordID)
		if resolved.RecordType != "" {
			fmt.Println("Type:    ", resolved.RecordType)
		}
		if resolved.AreaPath != "" {
			fmt.Println("Area:    ", resolved.AreaPath)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("token", "", "access token (defaults to $ROADMAP_TOKEN)")
}
