package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects <endpoint-url>",
	Short: "List projects visible at a tracker endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = os.Getenv("ROADMAP_TOKEN")
		}

		projects, err := eng.ListProjects(cmd.Context(), args[0], token)
		if err != nil {
			return err
		}

		for _, p := range projects {
			fmt.Println(p.Name)
		}
		return nil
	},
}

func init() {
	projectsCmd.Flags().String("token", "", "access token (defaults to $ROADMAP_TOKEN)")
}
