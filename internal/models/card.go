package models

import "time"

// Card lifecycle statuses.
const (
	CardStatusWaitingActivation = "waiting_activation"
	CardStatusActive            = "active"
	CardStatusInactive          = "inactive"
	CardStatusLost              = "lost"
	CardStatusBlocked           = "blocked"
)

// Card represents a physical payment card
type Card struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	PublicKey   string     `json:"-"` // hex-encoded, set out-of-band during provisioning
	PinHash     string     `json:"-"` // Not serialized
	PinSetAt    *time.Time `json:"pin_set_at,omitempty"`
	PinAttempts int        `json:"-"`
	OwnerID     string     `json:"owner_id,omitempty"` // empty when unassigned
	Comment     string     `json:"comment"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Provisioned reports whether the card has a key registered.
func (c *Card) Provisioned() bool {
	return c.PublicKey != ""
}
