package service

import (
	"context"
	"errors"

	"github.com/badgepay/badgepay/internal/apperr"
	"github.com/badgepay/badgepay/internal/auth"
	"github.com/badgepay/badgepay/internal/models"
	"github.com/badgepay/badgepay/internal/store"
	"github.com/google/uuid"
)

// historyLimit caps transaction history reads.
const historyLimit = 50

// ComputeBalance derives the account's spendable balance from the ledger.
// The value is never stored; the ledger is the single source of truth.
func (s *Service) ComputeBalance(ctx context.Context, accountID string) (int64, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return 0, apperr.New(apperr.KindAccountNotFound, "account not found")
		}
		return 0, apperr.Internal(err)
	}
	sum, err := s.store.SumAccount(ctx, accountID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return sum, nil
}

// CreateTransaction appends a value movement from the principal's account to
// the destination. The solvency check and the append are serialized per
// source account by the store, so concurrent debits cannot both pass against
// the same funds.
func (s *Service) CreateTransaction(ctx context.Context, p auth.Principal, destAccountID string, amount int64, comment string, bypassSolvency bool) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount, "amount must be positive")
	}
	if bypassSolvency && !p.IsAdmin() {
		return nil, apperr.New(apperr.KindUnauthorized, "solvency bypass requires an admin session")
	}

	sourceAccountID := p.AccountID
	sourceCardID := ""
	if p.Kind == auth.PrincipalCard {
		// Re-resolve the owner so a card reassigned after token minting
		// cannot spend from its previous account.
		card, err := s.store.GetCard(ctx, p.CardID)
		if err != nil {
			if errors.Is(err, store.ErrCardNotFound) {
				return nil, apperr.New(apperr.KindCardNotFound, "card not found")
			}
			return nil, apperr.Internal(err)
		}
		if card.Status != models.CardStatusActive {
			return nil, apperr.New(apperr.KindCardNotActive, "card is not active")
		}
		if card.OwnerID == "" {
			return nil, apperr.New(apperr.KindInvalidCardState, "card not assigned to an account")
		}
		sourceAccountID = card.OwnerID
		sourceCardID = card.ID
	}

	if _, err := s.store.GetAccount(ctx, sourceAccountID); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.New(apperr.KindAccountNotFound, "source account not found")
		}
		return nil, apperr.Internal(err)
	}
	if _, err := s.store.GetAccount(ctx, destAccountID); err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.New(apperr.KindAccountNotFound, "destination account not found")
		}
		return nil, apperr.Internal(err)
	}

	t := &models.Transaction{
		ID:                   uuid.NewString(),
		SourceAccountID:      sourceAccountID,
		DestinationAccountID: destAccountID,
		SourceCardID:         sourceCardID,
		Amount:               amount,
		Date:                 s.now(),
		Comment:              comment,
	}
	if err := s.store.AppendTransaction(ctx, t, !bypassSolvency); err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return nil, apperr.New(apperr.KindInsufficientFunds, "insufficient funds")
		}
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.New(apperr.KindAccountNotFound, "source account not found")
		}
		return nil, apperr.Internal(err)
	}

	s.log.Infof("Transaction %s: %d from %s to %s", t.ID, t.Amount, t.SourceAccountID, t.DestinationAccountID)
	return t, nil
}

// ListTransactions returns the most recent ledger rows touching the account.
func (s *Service) ListTransactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	out, err := s.store.ListTransactions(ctx, accountID, historyLimit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}
