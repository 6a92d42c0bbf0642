package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/internal/service/routing"
)

func newRulesCmd() *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Inspect publish routing rules",
	}

	var snapshotPath string
	check := &cobra.Command{
		Use:   "check <rules.yaml>",
		Short: "Parse a rules file and print its rules",
		Long: `Check parses a publish rules file and prints each rule. With --snapshot,
it also routes the given PublishedFile snapshot (JSON object) and prints the
channels that would be notified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := routing.LoadRules(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printRules(out, set)

			if snapshotPath == "" {
				return nil
			}
			snapshot, err := readSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			channels := routing.Route(snapshot, set)
			if len(channels) == 0 {
				fmt.Fprintln(out, "no channels")
				return nil
			}
			fmt.Fprintf(out, "channels: %s\n", strings.Join(channels, ", "))
			return nil
		},
	}
	check.Flags().StringVar(&snapshotPath, "snapshot", "", "PublishedFile snapshot to route")

	rules.AddCommand(check)
	return rules
}

func printRules(out io.Writer, rules []routing.Rule) {
	fmt.Fprintf(out, "%d rules\n", len(rules))
	for _, r := range rules {
		fmt.Fprintf(out, "  %s: %s -> %s\n", r.Name, r.Describe(), strings.Join(r.Channels, ", "))
	}
	if fields := routing.FieldNames(rules); len(fields) > 0 {
		fmt.Fprintf(out, "fields: %s\n", strings.Join(fields, ", "))
	}
}

func readSnapshot(path string) (domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot domain.Record
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return snapshot, nil
}
