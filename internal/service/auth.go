package service

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/badgepay/badgepay/internal/apperr"
	"github.com/badgepay/badgepay/internal/auth"
	"github.com/badgepay/badgepay/internal/models"
	"github.com/badgepay/badgepay/internal/store"
	"github.com/badgepay/badgepay/internal/utils"
)

// CardToken is the result of a successful card authentication.
type CardToken struct {
	Token     string `json:"token"`
	CardID    string `json:"card_id"`
	ExpiresIn int    `json:"expires_in"`
}

// IssueChallenge generates a fresh single-use challenge for the card.
// Outstanding challenges for the same card stay valid until taken or expired.
func (s *Service) IssueChallenge(ctx context.Context, cardID string) (*models.Challenge, error) {
	card, err := s.lookupAuthCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	value, err := utils.GenerateChallenge()
	if err != nil {
		return nil, apperr.Internal(err)
	}
	ch := &models.Challenge{
		Value:    value,
		CardID:   card.ID,
		IssuedAt: s.now(),
	}
	if err := s.store.CreateChallenge(ctx, ch); err != nil {
		return nil, apperr.Internal(err)
	}

	s.log.Debugf("Challenge issued for card %s", card.ID)
	return ch, nil
}

// VerifyResponse checks a signed challenge response and mints a card-scoped
// token. The challenge is consumed before the signature is checked, so a
// failed attempt burns it: replaying a captured response can never succeed.
func (s *Service) VerifyResponse(ctx context.Context, cardID, challengeValue, signature string) (*CardToken, error) {
	card, err := s.lookupAuthCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.OwnerID == "" {
		return nil, apperr.New(apperr.KindInvalidCardState, "card not assigned to an account")
	}

	taken, err := s.store.TakeChallenge(ctx, challengeValue, card.ID, s.now().Add(-s.config.ChallengeTTL))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !taken {
		return nil, apperr.New(apperr.KindChallengeInvalidOrExpired, "invalid or expired challenge")
	}

	key, err := hex.DecodeString(card.PublicKey)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	challengeBytes, err := hex.DecodeString(challengeValue)
	if err != nil {
		return nil, apperr.New(apperr.KindChallengeInvalidOrExpired, "invalid or expired challenge")
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != utils.SignatureSize {
		return nil, apperr.New(apperr.KindInvalidSignature, "invalid signature")
	}
	if !utils.VerifySignature(key, challengeBytes, sig) {
		s.log.Warnf("Signature mismatch for card %s", card.ID)
		return nil, apperr.New(apperr.KindInvalidSignature, "invalid signature")
	}

	token, err := auth.MintCardToken(s.config.JWTSecret, card.ID, card.OwnerID, s.config.CardTokenTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.log.Infof("Card authenticated: %s", card.ID)
	return &CardToken{
		Token:     token,
		CardID:    card.ID,
		ExpiresIn: int(s.config.CardTokenTTL.Seconds()),
	}, nil
}

// lookupAuthCard applies the gates common to both protocol steps: the card
// must exist, be active, and have a key registered.
func (s *Service) lookupAuthCard(ctx context.Context, cardID string) (*models.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, apperr.New(apperr.KindCardNotFound, "card not found")
		}
		return nil, apperr.Internal(err)
	}
	if card.Status != models.CardStatusActive {
		return nil, apperr.New(apperr.KindCardNotActive, "card is not active")
	}
	if !card.Provisioned() {
		return nil, apperr.New(apperr.KindCardNotProvisioned, "card has no key registered")
	}
	return card, nil
}
