package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <roadmap-id> <record-id>",
	Short: "Show a record's discussion thread and links",
	Long: "Fetch one record's comments and relations from the tracker using " +
		"the roadmap's stored configuration and credential.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordID, err := parseRecordID(args[1])
		if err != nil {
			return err
		}

		comments, err := eng.GetComments(cmd.Context(), args[0], recordID)
		if err != nil {
			return err
		}
		relations, err := eng.GetRelations(cmd.Context(), args[0], recordID)
		if err != nil {
			return err
		}

		if len(comments) == 0 {
			fmt.Println("No comments.")
		}
		for _, c := range comments {
			fmt.Printf("%s  %s\n  %s\n", c.CreatedAt, c.Author, c.Text)
		}

		if len(relations) > 0 {
			fmt.Println()
			fmt.Println("Links:")
			for _, r := range relations {
				fmt.Printf("  %-24s %s\n", r.Kind, r.URL)
			}
		}
		return nil
	},
}

func parseRecordID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("record id %q is not a positive number", s)
	}
	return id, nil
}
