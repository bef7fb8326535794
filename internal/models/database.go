package models

import (
	"time"

	"coin-ledger-go/internal/ledger"
)

// User is the profile half of a user document
type User struct {
	Id        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Photo     string    `db:"photo"`
	Currency  string    `db:"currency"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UserDocument is the whole per-user record: profile metadata plus the
// ledger snapshot. The ledger only ever writes the snapshot fields.
type UserDocument struct {
	User
	Ledger ledger.Snapshot
}

// PositionRow is one portfolio entry as stored
type PositionRow struct {
	UserId    string    `db:"user_id"`
	CoinId    string    `db:"coin_id"`
	Amount    string    `db:"amount"`
	AvgPrice  string    `db:"avg_price"`
	Symbol    string    `db:"symbol"`
	Name      string    `db:"name"`
	UpdatedAt time.Time `db:"updated_at"`
}
