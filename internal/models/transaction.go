package models

import "time"

// Transaction represents a single value movement in the ledger. Rows are
// append-only: amount, source and destination never change once written.
type Transaction struct {
	ID                   string    `json:"id"`
	SourceAccountID      string    `json:"source_account_id"`
	DestinationAccountID string    `json:"destination_account_id"`
	SourceCardID         string    `json:"source_card_id,omitempty"` // set when initiated via a card token
	Amount               int64     `json:"amount"`                   // minor currency units, always > 0
	Date                 time.Time `json:"date"`
	Comment              string    `json:"comment"`
}
