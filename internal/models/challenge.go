package models

import "time"

// Challenge is a single-use authentication nonce bound to a card. It is
// consumed on the first verification attempt and expires after a fixed TTL.
type Challenge struct {
	Value    string    `json:"challenge"` // hex-encoded random bytes, unique
	CardID   string    `json:"card_id"`
	IssuedAt time.Time `json:"issued_at"`
}
