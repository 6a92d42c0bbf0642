package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newRefreshUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-users",
		Short: "Reconcile ShotGrid users with Slack members and print the pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := services(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Reconciler.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("refresh identities: %w", err)
			}

			pairs := svc.Reconciler.Pairs()
			sort.Slice(pairs, func(i, j int) bool { return pairs[i].RecordUserID < pairs[j].RecordUserID })

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-10s %s\n", "USER", "CHAT")
			for _, p := range pairs {
				fmt.Fprintf(out, "%-10d %s\n", p.RecordUserID, p.ChatID)
			}
			fmt.Fprintf(out, "%d identities\n", len(pairs))
			return nil
		},
	}
}
