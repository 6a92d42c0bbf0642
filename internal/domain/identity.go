package domain

import "strings"

// DirectoryUser is an active human user of the record store, as fetched for
// identity reconciliation.
type DirectoryUser struct {
	ID    int
	Login string
	Name  string
	Email string
}

// Ref returns the user as an entity link.
func (u DirectoryUser) Ref() EntityRef {
	return EntityRef{Type: EntityHumanUser, ID: u.ID, Name: u.Name}
}

// ChatMember is a member of the chat workspace.
type ChatMember struct {
	ID          string
	Email       string
	DisplayName string
	RealName    string
	IsBot       bool
	IsDeleted   bool
}

// IdentityPair associates a chat identity with a record-store user.
type IdentityPair struct {
	ChatID       string `json:"chat_id"`
	RecordUserID int    `json:"record_user_id"`
}

// NormalizeEmail lowercases and trims an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
