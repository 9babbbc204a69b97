// Package post defines posts attached to a content collection.
package post

import "time"

// Post belongs to a content collection and is gated by that collection's
// asset. Posts are soft-deleted, never physically removed.
type Post struct {
	ID        string    `json:"id" db:"id"`
	ContentID string    `json:"content_id" db:"content_id"`
	WalletID  string    `json:"wallet_id" db:"wallet_id"`
	Title     string    `json:"title" db:"title"`
	Text      string    `json:"text" db:"text"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	IsDeleted bool      `json:"is_deleted,omitempty" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
