// Package media defines uploaded media records. The bytes live in object
// storage under the record ID; the row carries ownership and visibility.
package media

import "time"

type Media struct {
	ID        string    `json:"id" db:"id"`
	WalletID  string    `json:"wallet_id" db:"wallet_id"`
	Usage     string    `json:"usage" db:"usage"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	IsDeleted bool      `json:"is_deleted,omitempty" db:"is_deleted"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
