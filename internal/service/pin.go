package service

import (
	"context"
	"errors"

	"github.com/badgepay/badgepay/internal/apperr"
	"github.com/badgepay/badgepay/internal/models"
	"github.com/badgepay/badgepay/internal/store"
	"github.com/badgepay/badgepay/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// SetupPin activates a card by binding a hashed PIN. This is the only path
// by which a card transitions to active.
func (s *Service) SetupPin(ctx context.Context, cardID, pin string) error {
	if !utils.ValidPinFormat(pin) {
		return apperr.New(apperr.KindInvalidPinFormat, "pin must be exactly 4 digits")
	}

	if _, err := s.store.GetCard(ctx, cardID); err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return apperr.New(apperr.KindCardNotFound, "card not found")
		}
		return apperr.Internal(err)
	}

	pinHash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err)
	}

	// Conditional update: activation only succeeds from waiting_activation,
	// even if the status changed since the lookup above.
	activated, err := s.store.ActivateCard(ctx, cardID, string(pinHash), s.now())
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return apperr.New(apperr.KindCardNotFound, "card not found")
		}
		return apperr.Internal(err)
	}
	if !activated {
		return apperr.New(apperr.KindInvalidCardState, "card is not awaiting activation")
	}

	s.log.Infof("Card activated: %s", cardID)
	return nil
}

// VerifyPin checks a PIN against the card's stored hash and returns the
// linked account on success. Wrong PINs count toward lockout: once the
// attempt limit is reached the card transitions to blocked.
func (s *Service) VerifyPin(ctx context.Context, cardID, pin string) (*models.Account, error) {
	if !utils.ValidPinFormat(pin) {
		return nil, apperr.New(apperr.KindInvalidPinFormat, "pin must be exactly 4 digits")
	}

	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, apperr.New(apperr.KindCardNotFound, "card not found")
		}
		return nil, apperr.Internal(err)
	}
	if card.Status == models.CardStatusBlocked {
		return nil, apperr.New(apperr.KindCardBlocked, "card is blocked")
	}
	if card.Status != models.CardStatusActive {
		return nil, apperr.New(apperr.KindCardNotActive, "card is not active")
	}
	if card.PinHash == "" {
		// Unreachable while activation is the only path to active, checked anyway.
		return nil, apperr.New(apperr.KindPinNotSet, "card has no pin set")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(card.PinHash), []byte(pin)); err != nil {
		remaining, blocked, ferr := s.store.RecordPinFailure(ctx, cardID, s.config.MaxPinAttempts)
		if ferr != nil {
			return nil, apperr.Internal(ferr)
		}
		if blocked {
			s.log.Warnf("Card %s blocked after %d failed pin attempts", cardID, s.config.MaxPinAttempts)
			s.notifyCardBlocked(cardID)
		}
		return nil, &apperr.Error{
			Kind:    apperr.KindInvalidPin,
			Message: "invalid pin",
			Meta: map[string]interface{}{
				"attempts_remaining": remaining,
				"blocked":            blocked,
			},
		}
	}

	if err := s.store.ResetPinAttempts(ctx, cardID); err != nil {
		return nil, apperr.Internal(err)
	}

	if card.OwnerID == "" {
		return nil, apperr.New(apperr.KindInvalidCardState, "card not assigned to an account")
	}
	account, err := s.store.GetAccount(ctx, card.OwnerID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, apperr.New(apperr.KindAccountNotFound, "owner account not found")
		}
		return nil, apperr.Internal(err)
	}
	return account, nil
}

func (s *Service) notifyCardBlocked(cardID string) {
	if s.alerts == nil {
		return
	}
	go func() {
		if err := s.alerts.SendCardBlockedAlert(cardID, s.config.MaxPinAttempts); err != nil {
			s.log.Errorf("Failed to send card blocked alert for %s: %v", cardID, err)
		}
	}()
}
