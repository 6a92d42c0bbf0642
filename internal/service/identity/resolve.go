package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// userRecords reads and updates HumanUser records. FindOne returns a nil
// record for an absent user.
type userRecords interface {
	FindOne(ctx context.Context, entityType string, filters []domain.Filter, fields []string) (domain.Record, error)
	Update(ctx context.Context, entityType string, id int, fields map[string]any) error
}

// Resolver resolves a record user to a chat id, falling back to the chat id
// stored on the user record and then to an email lookup on the chat
// platform. Successful fallbacks are written through to the cache, and an
// email match is also saved on the user record.
type Resolver struct {
	reconciler  *Reconciler
	records     userRecords
	chat        chatDirectory
	chatIDField string
	log         *slog.Logger
}

// NewResolver creates a Resolver. chatIDField is the HumanUser field holding
// a known chat id (e.g. "sg_slack_id"); empty disables the record fallback.
func NewResolver(log *slog.Logger, reconciler *Reconciler, records userRecords, chat chatDirectory, chatIDField string) *Resolver {
	return &Resolver{
		reconciler:  reconciler,
		records:     records,
		chat:        chat,
		chatIDField: chatIDField,
		log:         log.With("service", "identity"),
	}
}

// Resolve returns the chat id of user. It returns domain.ErrUnresolved when
// no identity can be found, and domain.ErrDirectory when the directories
// cannot be read.
func (r *Resolver) Resolve(ctx context.Context, user domain.EntityRef) (string, error) {
	if user.Type != domain.EntityHumanUser {
		return "", fmt.Errorf("identity: %s: %w", user, domain.ErrUnresolved)
	}

	chatID, err := r.reconciler.Lookup(ctx, user.ID, false)
	if err == nil {
		return chatID, nil
	}
	if !errors.Is(err, domain.ErrUnresolved) {
		return "", err
	}

	fields := []string{"email"}
	if r.chatIDField != "" {
		fields = append(fields, r.chatIDField)
	}
	rec, err := r.records.FindOne(ctx, domain.EntityHumanUser, []domain.Filter{domain.Is("id", user.ID)}, fields)
	if err != nil {
		return "", fmt.Errorf("identity: fetch user %d: %w", user.ID, errors.Join(domain.ErrDirectory, err))
	}
	if rec == nil {
		return "", fmt.Errorf("identity: user %d not in record store: %w", user.ID, domain.ErrUnresolved)
	}

	if r.chatIDField != "" {
		if stored := rec.String(r.chatIDField); stored != "" {
			r.reconciler.Add(ctx, stored, user.ID)
			return stored, nil
		}
	}

	email := rec.String("email")
	if email == "" {
		return "", fmt.Errorf("identity: user %d has no email: %w", user.ID, domain.ErrUnresolved)
	}

	chatID, err = r.chat.LookupByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("identity: user %d: %w", user.ID, domain.ErrUnresolved)
	}
	if err != nil {
		return "", fmt.Errorf("identity: lookup by email: %w", errors.Join(domain.ErrDirectory, err))
	}

	r.reconciler.Add(ctx, chatID, user.ID)

	if r.chatIDField != "" {
		if err := r.records.Update(ctx, domain.EntityHumanUser, user.ID, map[string]any{r.chatIDField: chatID}); err != nil {
			r.log.WarnContext(ctx, "store chat id on user failed",
				slog.Int("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	r.log.DebugContext(ctx, "identity resolved by email",
		slog.Int("user_id", user.ID),
		slog.String("chat_id", chatID),
	)
	return chatID, nil
}
