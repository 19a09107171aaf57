package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ai4care/ai4care/internal/triage"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past assessments, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := a.history.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Max entries to show, 0 for all")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the interaction log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.history.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	})
	return cmd
}

func newGuidanceCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:       "guidance <red|yellow|green>",
		Short:     "Show the next steps for an urgency level",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"red", "yellow", "green"},
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := triage.ParseUrgencyLevel(args[0])
			if err != nil {
				return err
			}
			card, _ := triage.Guidance(level)
			printCard(cmd.OutOrStdout(), card)
			return nil
		},
	}
}
