package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
	"github.com/wwfxuk/shotgunEvents/pkg/ctxutil"
)

// journal stores what each handler did with an event. It is write-only.
type journal interface {
	Record(ctx context.Context, event domain.Event, report domain.Report) error
}

// Engine runs the handlers matching an event.
type Engine struct {
	handlers []Handler
	journal  journal
	log      *slog.Logger
}

// NewEngine creates an Engine. journal may be nil.
func NewEngine(log *slog.Logger, journal journal, handlers ...Handler) *Engine {
	return &Engine{
		handlers: handlers,
		journal:  journal,
		log:      log.With("service", "engine"),
	}
}

// Handlers returns the registered handler names.
func (e *Engine) Handlers() []string {
	names := make([]string, len(e.handlers))
	for i, h := range e.handlers {
		names[i] = h.Name()
	}
	return names
}

// Process runs every matching handler, one after another. A handler error
// is recorded in its report and does not stop the others. Directory
// failures are also returned, joined, next to the reports so the delivery
// can be retried; any other handler error is reported only.
func (e *Engine) Process(ctx context.Context, event domain.Event) ([]domain.Report, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("process event %d: %w", event.ID, err)
	}

	ctx = ctxutil.WithEventID(ctx, event.ID)
	log := e.log.With(slog.Int("event_id", event.ID), slog.String("event_type", event.EventType))
	reports := make([]domain.Report, 0, 1)
	var dirErrs []error

	for _, h := range e.handlers {
		if !h.Matches(event) {
			continue
		}

		report, err := h.Handle(ctx, event)
		if err != nil {
			report.Error = err.Error()
			if errors.Is(err, domain.ErrDirectory) {
				dirErrs = append(dirErrs, fmt.Errorf("%s: %w", h.Name(), err))
			}
			log.ErrorContext(ctx, "handler failed",
				slog.String("handler", h.Name()),
				slog.String("error", err.Error()),
			)
		} else {
			log.InfoContext(ctx, "handler finished",
				slog.String("handler", h.Name()),
				slog.Bool("admitted", report.Admitted),
				slog.String("reason", report.Reason),
				slog.Int("succeeded", report.Count(domain.OutcomeSucceeded)),
				slog.Int("failed", report.Count(domain.OutcomeFailed)),
				slog.Int("unresolved", report.Count(domain.OutcomeUnresolved)),
			)
		}

		if e.journal != nil {
			if jerr := e.journal.Record(ctx, event, report); jerr != nil {
				log.WarnContext(ctx, "journal write failed",
					slog.String("handler", h.Name()),
					slog.String("error", jerr.Error()),
				)
			}
		}
		reports = append(reports, report)
	}

	if len(reports) == 0 {
		log.DebugContext(ctx, "no handler for event")
	}
	if len(dirErrs) > 0 {
		return reports, fmt.Errorf("process event %d: %w", event.ID, errors.Join(dirErrs...))
	}
	return reports, nil
}
