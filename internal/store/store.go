package store

import (
	"context"
	"errors"
	"time"

	"github.com/badgepay/badgepay/internal/models"
)

// Sentinel errors shared by all Store implementations.
var (
	ErrCardNotFound      = errors.New("card not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Store is the durable state behind the payment core: card registry,
// challenge store and transaction ledger. It is injected into the service
// layer so tests can run against the in-memory implementation.
type Store interface {
	// GetCard returns a card by id, or ErrCardNotFound.
	GetCard(ctx context.Context, id string) (*models.Card, error)
	// GetAccount returns an account by id, or ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (*models.Account, error)

	// CreateChallenge persists a new pending challenge. Outstanding
	// challenges for the same card are left untouched.
	CreateChallenge(ctx context.Context, ch *models.Challenge) error
	// TakeChallenge atomically deletes the (value, cardID) challenge and
	// reports whether it existed and was issued at notBefore or later.
	// Concurrent takes of the same challenge succeed exactly once.
	TakeChallenge(ctx context.Context, value, cardID string, notBefore time.Time) (bool, error)
	// DeleteExpiredChallenges removes challenges issued before the cutoff
	// and returns the number deleted.
	DeleteExpiredChallenges(ctx context.Context, before time.Time) (int64, error)

	// ActivateCard stores the PIN hash and flips the card to active,
	// conditional on the current status being waiting_activation. Returns
	// false when the card exists but is in any other state.
	ActivateCard(ctx context.Context, cardID, pinHash string, at time.Time) (bool, error)
	// RecordPinFailure atomically increments the failed-attempt counter,
	// transitioning the card to blocked once maxAttempts is reached.
	// Returns the attempts remaining and whether the card is now blocked.
	RecordPinFailure(ctx context.Context, cardID string, maxAttempts int) (remaining int, blocked bool, err error)
	// ResetPinAttempts clears the failed-attempt counter.
	ResetPinAttempts(ctx context.Context, cardID string) error

	// SumAccount folds the full ledger for the account: credits where it is
	// the destination minus debits where it is the source.
	SumAccount(ctx context.Context, accountID string) (int64, error)
	// AppendTransaction appends a ledger row. When enforceSolvency is set,
	// the solvency check and the append execute as one serialized unit per
	// source account; ErrInsufficientFunds is returned without a row being
	// written when the debit would drive the balance negative.
	AppendTransaction(ctx context.Context, t *models.Transaction, enforceSolvency bool) error
	// ListTransactions returns the most recent rows touching the account,
	// newest first. An empty accountID returns rows for all accounts.
	ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error)
}
