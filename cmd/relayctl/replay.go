package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/internal/transport/rest"
)

type eventProcessor interface {
	Process(ctx context.Context, event domain.Event) ([]domain.Report, error)
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <events.json>",
		Short: "Run saved events through the relay handlers",
		Long: `Replay reads a webhook delivery, an event log entry or a JSON array of
entries ("-" for stdin) and processes each event as if it had just arrived.
Messages are really sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			svc, err := services(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			return replay(cmd.Context(), cmd.OutOrStdout(), svc.Engine, events)
		},
	}
}

func readEvents(stdin io.Reader, path string) ([]domain.Event, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	events, err := rest.DecodeEvents(data)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
	}
	return events, nil
}

// replay processes events in order. It prints the reports of each event,
// then stops at the first engine error.
func replay(ctx context.Context, out io.Writer, engine eventProcessor, events []domain.Event) error {
	for _, ev := range events {
		reports, err := engine.Process(ctx, ev)

		fmt.Fprintf(out, "event %d %s\n", ev.ID, ev.EventType)
		for _, r := range reports {
			if !r.Admitted {
				fmt.Fprintf(out, "  %-20s skipped: %s\n", r.Handler, r.Reason)
				continue
			}
			fmt.Fprintf(out, "  %-20s succeeded=%d failed=%d unresolved=%d\n", r.Handler,
				r.Count(domain.OutcomeSucceeded), r.Count(domain.OutcomeFailed), r.Count(domain.OutcomeUnresolved))
			if r.Error != "" {
				fmt.Fprintf(out, "  %-20s error: %s\n", "", r.Error)
			}
		}
		if err != nil {
			return fmt.Errorf("event %d: %w", ev.ID, err)
		}
	}
	return nil
}
