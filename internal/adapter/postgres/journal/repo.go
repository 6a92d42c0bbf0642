// Package journal stores what each relay handler did with each event. The
// journal is append-only and only read back for inspection.
package journal

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/wwfxuk/shotgunEvents/internal/adapter/postgres"
	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

const (
	runsTable     = "relay_runs"
	outcomesTable = "relay_outcomes"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	runColumns     = []string{"id", "event_id", "event_type", "handler", "admitted", "reason", "error", "created_at"}
	outcomeColumns = []string{"id", "run_id", "position", "target", "recipient_type", "recipient_id", "recipient_name", "status", "error"}
)

// Repo provides journal persistence backed by PostgreSQL.
type Repo struct {
	db    postgres.DB
	tx    *postgres.TxManager
	now   func() time.Time
	newID func() uuid.UUID
}

// New creates a journal repository.
func New(db postgres.DB) *Repo {
	return &Repo{
		db:    db,
		tx:    postgres.NewTxManager(db),
		now:   time.Now,
		newID: uuid.New,
	}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Record appends one handler report, with its outcomes, in one transaction.
func (r *Repo) Record(ctx context.Context, event domain.Event, report domain.Report) error {
	runID := r.newID()

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		query, args, err := psql.Insert(runsTable).
			Columns(runColumns...).
			Values(runID, event.ID, event.EventType, report.Handler, report.Admitted, report.Reason, report.Error, r.now().UTC()).
			ToSql()
		if err != nil {
			return fmt.Errorf("relay_run build insert: %w", err)
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return postgres.MapError(err, "relay_run", runID)
		}

		if len(report.Outcomes) == 0 {
			return nil
		}

		insert := psql.Insert(outcomesTable).Columns(outcomeColumns...)
		for i, o := range report.Outcomes {
			var recipient domain.EntityRef
			if o.Recipient != nil {
				recipient = *o.Recipient
			}
			insert = insert.Values(r.newID(), runID, i, o.Target, recipient.Type, recipient.ID, recipient.Name, string(o.Status), o.Error)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("relay_outcome build insert: %w", err)
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return postgres.MapError(err, "relay_outcomes of run", runID)
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

type runRow struct {
	ID        uuid.UUID `db:"id"`
	EventID   int64     `db:"event_id"`
	EventType string    `db:"event_type"`
	Handler   string    `db:"handler"`
	Admitted  bool      `db:"admitted"`
	Reason    string    `db:"reason"`
	Error     string    `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}

type outcomeRow struct {
	RunID         uuid.UUID `db:"run_id"`
	Target        string    `db:"target"`
	RecipientType string    `db:"recipient_type"`
	RecipientID   int64     `db:"recipient_id"`
	RecipientName string    `db:"recipient_name"`
	Status        string    `db:"status"`
	Error         string    `db:"error"`
}

// RunsByEvent returns every run recorded for an event, oldest first.
func (r *Repo) RunsByEvent(ctx context.Context, eventID int) ([]domain.Run, error) {
	return r.listRuns(ctx, psql.Select(runColumns...).
		From(runsTable).
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("created_at ASC", "handler ASC"))
}

// Recent returns the latest runs, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.listRuns(ctx, psql.Select(runColumns...).
		From(runsTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)))
}

func (r *Repo) listRuns(ctx context.Context, query sq.SelectBuilder) ([]domain.Run, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("relay_runs build select: %w", err)
	}
	var runs []runRow
	if err := pgxscan.Select(ctx, q, &runs, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("select relay_runs: %w", err)
	}
	if len(runs) == 0 {
		return []domain.Run{}, nil
	}

	ids := make([]uuid.UUID, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
	}
	sqlStr, args, err = psql.Select("run_id", "target", "recipient_type", "recipient_id", "recipient_name", "status", "error").
		From(outcomesTable).
		Where(sq.Eq{"run_id": ids}).
		OrderBy("run_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("relay_outcomes build select: %w", err)
	}
	var outcomes []outcomeRow
	if err := pgxscan.Select(ctx, q, &outcomes, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("select relay_outcomes: %w", err)
	}

	byRun := make(map[uuid.UUID][]domain.Outcome, len(runs))
	for _, o := range outcomes {
		byRun[o.RunID] = append(byRun[o.RunID], toDomainOutcome(o))
	}

	result := make([]domain.Run, len(runs))
	for i, run := range runs {
		result[i] = toDomainRun(run, byRun[run.ID])
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func toDomainRun(row runRow, outcomes []domain.Outcome) domain.Run {
	return domain.Run{
		ID:        row.ID,
		EventType: row.EventType,
		CreatedAt: row.CreatedAt,
		Report: domain.Report{
			Handler:  row.Handler,
			EventID:  int(row.EventID),
			Admitted: row.Admitted,
			Reason:   row.Reason,
			Error:    row.Error,
			Outcomes: outcomes,
		},
	}
}

func toDomainOutcome(row outcomeRow) domain.Outcome {
	o := domain.Outcome{
		Target: row.Target,
		Status: domain.OutcomeStatus(row.Status),
		Error:  row.Error,
	}
	if row.RecipientType != "" {
		o.Recipient = &domain.EntityRef{Type: row.RecipientType, ID: int(row.RecipientID), Name: row.RecipientName}
	}
	return o
}
