// Package comment defines comments attached to posts.
package comment

import "time"

// Comment is gated transitively through its post's content collection.
// Comments are soft-deleted, never physically removed.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	PostID    string    `json:"post_id" db:"post_id"`
	WalletID  string    `json:"wallet_id" db:"wallet_id"`
	Text      string    `json:"comment" db:"text"`
	IsDeleted bool      `json:"is_deleted,omitempty" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
