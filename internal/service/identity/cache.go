package identity

import (
	"sort"
	"sync"

	"github.com/wwfxuk/shotgunEvents/internal/domain"
)

// Cache is a bidirectional chat id <-> record user id mapping. Both maps are
// updated under one lock, so no chat id maps to two users and no user maps
// to two chat ids.
type Cache struct {
	mu     sync.RWMutex
	byChat map[string]int
	byUser map[int]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		byChat: make(map[string]int),
		byUser: make(map[int]string),
	}
}

// Len returns the number of pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byUser)
}

// ChatOf returns the chat id mapped to a record user.
func (c *Cache) ChatOf(userID int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byUser[userID]
	return id, ok
}

// UserOf returns the record user mapped to a chat id.
func (c *Cache) UserOf(chatID string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byChat[chatID]
	return id, ok
}

// Add stores a pair. Any existing pair sharing either side is removed and
// returned so the caller can report the conflict.
func (c *Cache) Add(pair domain.IdentityPair) []domain.IdentityPair {
	c.mu.Lock()
	defer c.mu.Unlock()

	var displaced []domain.IdentityPair
	if userID, ok := c.byChat[pair.ChatID]; ok && userID != pair.RecordUserID {
		displaced = append(displaced, domain.IdentityPair{ChatID: pair.ChatID, RecordUserID: userID})
		delete(c.byUser, userID)
	}
	if chatID, ok := c.byUser[pair.RecordUserID]; ok && chatID != pair.ChatID {
		displaced = append(displaced, domain.IdentityPair{ChatID: chatID, RecordUserID: pair.RecordUserID})
		delete(c.byChat, chatID)
	}

	c.byChat[pair.ChatID] = pair.RecordUserID
	c.byUser[pair.RecordUserID] = pair.ChatID
	return displaced
}

// DiscardChat removes the pair holding chatID.
func (c *Cache) DiscardChat(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	userID, ok := c.byChat[chatID]
	if !ok {
		return false
	}
	delete(c.byChat, chatID)
	delete(c.byUser, userID)
	return true
}

// DiscardUser removes the pair holding userID.
func (c *Cache) DiscardUser(userID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	chatID, ok := c.byUser[userID]
	if !ok {
		return false
	}
	delete(c.byUser, userID)
	delete(c.byChat, chatID)
	return true
}

// Pairs returns a snapshot of all pairs ordered by record user id.
func (c *Cache) Pairs() []domain.IdentityPair {
	c.mu.RLock()
	pairs := make([]domain.IdentityPair, 0, len(c.byUser))
	for userID, chatID := range c.byUser {
		pairs = append(pairs, domain.IdentityPair{ChatID: chatID, RecordUserID: userID})
	}
	c.mu.RUnlock()

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].RecordUserID < pairs[j].RecordUserID })
	return pairs
}

// replace swaps in a fully built mapping. Readers see either the old or the
// new contents, never a partial one.
func (c *Cache) replace(byChat map[string]int, byUser map[int]string) {
	c.mu.Lock()
	c.byChat = byChat
	c.byUser = byUser
	c.mu.Unlock()
}
