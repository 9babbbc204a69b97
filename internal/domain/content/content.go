// Package content defines the asset-gated content collection.
package content

import "time"

// Content is a collection gated by ownership of one on-chain asset. Token is
// the gating asset identifier and is unique across all content records: the
// first wallet to claim an asset owns its collection.
type Content struct {
	ID          string    `json:"id" db:"id"`
	WalletID    string    `json:"wallet_id" db:"wallet_id"`
	Token       string    `json:"token" db:"token"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
