package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/badgepay/badgepay/internal/models"
	"github.com/badgepay/badgepay/internal/store"
)

// Repository provides database operations against Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetCard retrieves a card by id
func (r *Repository) GetCard(ctx context.Context, id string) (*models.Card, error) {
	card := &models.Card{}
	var publicKey, pinHash, ownerID sql.NullString
	var pinSetAt sql.NullTime
	query := `
		SELECT id, status, public_key, pin_hash, pin_set_at, pin_attempts, owner_id, comment, created_at, updated_at
		FROM pay.cards
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&card.ID, &card.Status, &publicKey, &pinHash, &pinSetAt, &card.PinAttempts,
			&ownerID, &card.Comment, &card.CreatedAt, &card.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	card.PublicKey = publicKey.String
	card.PinHash = pinHash.String
	card.OwnerID = ownerID.String
	if pinSetAt.Valid {
		card.PinSetAt = &pinSetAt.Time
	}
	return card, nil
}

// GetAccount retrieves an account by id
func (r *Repository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account := &models.Account{}
	query := `
		SELECT id, name, username, role
		FROM pay.accounts
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.Name, &account.Username, &account.Role)
	if err == sql.ErrNoRows {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// CreateChallenge persists a new pending challenge
func (r *Repository) CreateChallenge(ctx context.Context, ch *models.Challenge) error {
	query := `
		INSERT INTO pay.challenges (value, card_id, issued_at)
		VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, ch.Value, ch.CardID, ch.IssuedAt); err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// TakeChallenge deletes the challenge and reports whether a live row existed.
// DELETE with the freshness predicate is a single statement, so two racing
// verification attempts can never both observe the row.
func (r *Repository) TakeChallenge(ctx context.Context, value, cardID string, notBefore time.Time) (bool, error) {
	query := `
		DELETE FROM pay.challenges
		WHERE value = $1 AND card_id = $2 AND issued_at >= $3`
	res, err := r.db.ExecContext(ctx, query, value, cardID, notBefore)
	if err != nil {
		return false, fmt.Errorf("failed to take challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to take challenge: %w", err)
	}
	return n > 0, nil
}

// DeleteExpiredChallenges removes challenges issued before the cutoff
func (r *Repository) DeleteExpiredChallenges(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pay.challenges WHERE issued_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	return n, nil
}

// ActivateCard binds the PIN hash and flips the card to active, conditional
// on its current status being waiting_activation
func (r *Repository) ActivateCard(ctx context.Context, cardID, pinHash string, at time.Time) (bool, error) {
	query := `
		UPDATE pay.cards
		SET status = 'active', pin_hash = $2, pin_set_at = $3, pin_attempts = 0, updated_at = $3
		WHERE id = $1 AND status = 'waiting_activation'`
	res, err := r.db.ExecContext(ctx, query, cardID, pinHash, at)
	if err != nil {
		return false, fmt.Errorf("failed to activate card: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to activate card: %w", err)
	}
	return n > 0, nil
}

// RecordPinFailure increments the failed-attempt counter and blocks the card
// once the limit is reached, in one statement
func (r *Repository) RecordPinFailure(ctx context.Context, cardID string, maxAttempts int) (int, bool, error) {
	var attempts int
	var status string
	query := `
		UPDATE pay.cards
		SET pin_attempts = pin_attempts + 1,
		    status = CASE WHEN pin_attempts + 1 >= $2 THEN 'blocked' ELSE status END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING pin_attempts, status`
	err := r.db.QueryRowContext(ctx, query, cardID, maxAttempts).Scan(&attempts, &status)
	if err == sql.ErrNoRows {
		return 0, false, store.ErrCardNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to record pin failure: %w", err)
	}
	remaining := maxAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining, status == models.CardStatusBlocked, nil
}

// ResetPinAttempts clears the failed-attempt counter
func (r *Repository) ResetPinAttempts(ctx context.Context, cardID string) error {
	query := `
		UPDATE pay.cards
		SET pin_attempts = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, cardID); err != nil {
		return fmt.Errorf("failed to reset pin attempts: %w", err)
	}
	return nil
}

// SumAccount folds the full ledger for the account
func (r *Repository) SumAccount(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	query := `
		SELECT COALESCE(SUM(
			CASE WHEN destination_account_id = $1 THEN amount ELSE 0 END -
			CASE WHEN source_account_id = $1 THEN amount ELSE 0 END), 0)
		FROM pay.transactions
		WHERE source_account_id = $1 OR destination_account_id = $1`
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum account: %w", err)
	}
	return sum, nil
}

// AppendTransaction appends a ledger row. With enforceSolvency set, the
// source account row is locked for the duration of the transaction so the
// balance check and the append form one serialized unit per source account.
func (r *Repository) AppendTransaction(ctx context.Context, t *models.Transaction, enforceSolvency bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM pay.accounts WHERE id = $1 FOR UPDATE`, t.SourceAccountID).Scan(&locked)
	if err == sql.ErrNoRows {
		return store.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock source account: %w", err)
	}

	if enforceSolvency {
		var sum int64
		query := `
			SELECT COALESCE(SUM(
				CASE WHEN destination_account_id = $1 THEN amount ELSE 0 END -
				CASE WHEN source_account_id = $1 THEN amount ELSE 0 END), 0)
			FROM pay.transactions
			WHERE source_account_id = $1 OR destination_account_id = $1`
		if err := tx.QueryRowContext(ctx, query, t.SourceAccountID).Scan(&sum); err != nil {
			return fmt.Errorf("failed to compute balance: %w", err)
		}
		if sum-t.Amount < 0 {
			return store.ErrInsufficientFunds
		}
	}

	var sourceCardID interface{}
	if t.SourceCardID != "" {
		sourceCardID = t.SourceCardID
	}
	insert := `
		INSERT INTO pay.transactions (id, source_account_id, destination_account_id, source_card_id, amount, date, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, insert, t.ID, t.SourceAccountID, t.DestinationAccountID,
		sourceCardID, t.Amount, t.Date, t.Comment); err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the most recent rows touching the account, newest
// first. An empty accountID lists rows for all accounts.
func (r *Repository) ListTransactions(ctx context.Context, accountID string, limit int) ([]models.Transaction, error) {
	var rows *sql.Rows
	var err error
	if accountID == "" {
		query := `
			SELECT id, source_account_id, destination_account_id, source_card_id, amount, date, comment
			FROM pay.transactions
			ORDER BY date DESC
			LIMIT $1`
		rows, err = r.db.QueryContext(ctx, query, limit)
	} else {
		query := `
			SELECT id, source_account_id, destination_account_id, source_card_id, amount, date, comment
			FROM pay.transactions
			WHERE source_account_id = $1 OR destination_account_id = $1
			ORDER BY date DESC
			LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, accountID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var sourceCardID sql.NullString
		if err := rows.Scan(&t.ID, &t.SourceAccountID, &t.DestinationAccountID,
			&sourceCardID, &t.Amount, &t.Date, &t.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.SourceCardID = sourceCardID.String
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return out, nil
}
