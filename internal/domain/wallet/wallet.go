// Package wallet defines the registered wallet record.
package wallet

import "time"

// Wallet is a wallet address that has logged in at least once. The address
// is the identity; there is no separate user table.
type Wallet struct {
	Address   string    `json:"address" db:"address"`
	Name      string    `json:"name,omitempty" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
