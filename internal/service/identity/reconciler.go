// Package identity reconciles record-store users with chat-platform members.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// userDirectory lists active human users of the record store, excluding
// template and service accounts, in a stable order.
type userDirectory interface {
	ActiveUsers(ctx context.Context) ([]domain.DirectoryUser, error)
}

// chatDirectory lists workspace members and looks members up by email.
// LookupByEmail returns domain.ErrNotFound when no member has the address.
type chatDirectory interface {
	ListMembers(ctx context.Context) ([]domain.ChatMember, error)
	LookupByEmail(ctx context.Context, email string) (string, error)
}

// Reconciler maps record-store users to chat identities through a lazily
// refreshed cache.
type Reconciler struct {
	cache *Cache
	users userDirectory
	chat  chatDirectory
	log   *slog.Logger

	// refreshMu serializes refreshes; lookups only take the cache lock.
	refreshMu sync.Mutex
	// loaded is set by the first successful refresh, even one that matched
	// nobody.
	loaded atomic.Bool
}

// NewReconciler creates a Reconciler that owns cache.
func NewReconciler(log *slog.Logger, cache *Cache, users userDirectory, chat chatDirectory) *Reconciler {
	return &Reconciler{
		cache: cache,
		users: users,
		chat:  chat,
		log:   log.With("service", "identity"),
	}
}

// Cache exposes the underlying cache for manual correction.
func (r *Reconciler) Cache() *Cache { return r.cache }

// Lookup returns the chat id of a record user. A cache that was never
// refreshed and holds no entries is refreshed first; forceRefresh always refreshes. A missing mapping yields
// domain.ErrUnresolved, a failed refresh domain.ErrDirectory.
func (r *Reconciler) Lookup(ctx context.Context, userID int, forceRefresh bool) (string, error) {
	if forceRefresh {
		if err := r.Refresh(ctx); err != nil {
			return "", err
		}
	} else if err := r.ensureLoaded(ctx); err != nil {
		return "", err
	}

	chatID, ok := r.cache.ChatOf(userID)
	if !ok {
		return "", fmt.Errorf("identity: user %d: %w", userID, domain.ErrUnresolved)
	}
	return chatID, nil
}

func (r *Reconciler) ensureLoaded(ctx context.Context) error {
	if r.isLoaded() {
		return nil
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if r.isLoaded() {
		return nil
	}
	return r.refreshLocked(ctx)
}

func (r *Reconciler) isLoaded() bool {
	return r.loaded.Load() || r.cache.Len() > 0
}

// Refresh rebuilds the cache from both directories. The cache is replaced
// only when both fetches succeed; on failure it keeps its previous contents.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *Reconciler) refreshLocked(ctx context.Context) error {
	var (
		users   []domain.DirectoryUser
		members []domain.ChatMember
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if users, err = r.users.ActiveUsers(gctx); err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if members, err = r.chat.ListMembers(gctx); err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("identity: refresh: %w", errors.Join(domain.ErrDirectory, err))
	}

	byChat, byUser := Match(users, members)
	r.cache.replace(byChat, byUser)
	r.loaded.Store(true)

	r.log.InfoContext(ctx, "identity cache refreshed",
		slog.Int("users", len(users)),
		slog.Int("members", len(members)),
		slog.Int("pairs", len(byUser)),
	)
	return nil
}

// Add stores a manual mapping. Conflicting pairs are overwritten with a
// warning.
func (r *Reconciler) Add(ctx context.Context, chatID string, userID int) domain.IdentityPair {
	pair := domain.IdentityPair{ChatID: chatID, RecordUserID: userID}
	for _, old := range r.cache.Add(pair) {
		r.log.WarnContext(ctx, "identity pair overwritten",
			slog.String("old_chat_id", old.ChatID),
			slog.Int("old_user_id", old.RecordUserID),
			slog.String("chat_id", chatID),
			slog.Int("user_id", userID),
		)
	}
	return pair
}

// DiscardChat removes the mapping of a chat id.
func (r *Reconciler) DiscardChat(chatID string) bool { return r.cache.DiscardChat(chatID) }

// DiscardUser removes the mapping of a record user.
func (r *Reconciler) DiscardUser(userID int) bool { return r.cache.DiscardUser(userID) }

// Pairs returns a snapshot of every known mapping.
func (r *Reconciler) Pairs() []domain.IdentityPair { return r.cache.Pairs() }

// Match pairs chat members with record users. For each usable member, in
// order, the first not-yet-mapped user (in directory order) whose email,
// login or full name matches wins. This is a heuristic, not an optimal
// assignment.
func Match(users []domain.DirectoryUser, members []domain.ChatMember) (map[string]int, map[int]string) {
	byChat := make(map[string]int)
	byUser := make(map[int]string)

	for _, m := range members {
		if m.IsBot || m.IsDeleted || m.ID == "" {
			continue
		}
		if _, taken := byChat[m.ID]; taken {
			continue
		}
		for _, u := range users {
			if _, taken := byUser[u.ID]; taken {
				continue
			}
			if matches(u, m) {
				byChat[m.ID] = u.ID
				byUser[u.ID] = m.ID
				break
			}
		}
	}
	return byChat, byUser
}

func matches(u domain.DirectoryUser, m domain.ChatMember) bool {
	if email := domain.NormalizeEmail(u.Email); email != "" && email == domain.NormalizeEmail(m.Email) {
		return true
	}
	if u.Login != "" && u.Login == m.DisplayName {
		return true
	}
	if u.Name != "" && (u.Name == m.DisplayName || u.Name == m.RealName) {
		return true
	}
	return false
}
