package service

import (
	"context"
	"testing"

	"github.com/badgepay/badgepay/internal/apperr"
	"github.com/badgepay/badgepay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupPin(t *testing.T) {
	ctx := context.Background()

	t.Run("activates a waiting card", func(t *testing.T) {
		svc, mem := newTestService(t)
		mem.PutCard(models.Card{ID: "card-1", Status: models.CardStatusWaitingActivation})

		require.NoError(t, svc.SetupPin(ctx, "card-1", "1234"))

		card, err := mem.GetCard(ctx, "card-1")
		require.NoError(t, err)
		assert.Equal(t, models.CardStatusActive, card.Status)
		assert.NotEmpty(t, card.PinHash)
		assert.NotEqual(t, "1234", card.PinHash, "pin must be stored hashed")
		assert.NotNil(t, card.PinSetAt)
	})

	t.Run("second setup fails once active", func(t *testing.T) {
		svc, mem := newTestService(t)
		mem.PutCard(models.Card{ID: "card-1", Status: models.CardStatusWaitingActivation})
		require.NoError(t, svc.SetupPin(ctx, "card-1", "1234"))

		err := svc.SetupPin(ctx, "card-1", "5678")
		assert.Equal(t, apperr.KindInvalidCardState, apperr.KindOf(err))
	})

	t.Run("only waiting_activation can be activated", func(t *testing.T) {
		svc, mem := newTestService(t)
		for _, status := range []string{
			models.CardStatusActive,
			models.CardStatusInactive,
			models.CardStatusLost,
			models.CardStatusBlocked,
		} {
			mem.PutCard(models.Card{ID: status, Status: status})
			err := svc.SetupPin(ctx, status, "1234")
			assert.Equal(t, apperr.KindInvalidCardState, apperr.KindOf(err), "status %s", status)
		}
	})

	t.Run("format and existence gates", func(t *testing.T) {
		svc, mem := newTestService(t)
		mem.PutCard(models.Card{ID: "card-1", Status: models.CardStatusWaitingActivation})

		assert.Equal(t, apperr.KindInvalidPinFormat, apperr.KindOf(svc.SetupPin(ctx, "card-1", "12ab")))
		assert.Equal(t, apperr.KindInvalidPinFormat, apperr.KindOf(svc.SetupPin(ctx, "card-1", "12345")))
		assert.Equal(t, apperr.KindCardNotFound, apperr.KindOf(svc.SetupPin(ctx, "missing", "1234")))
	})
}

func TestVerifyPin(t *testing.T) {
	ctx := context.Background()

	activate := func(t *testing.T) (*Service, *models.Account) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		mem.PutCard(models.Card{ID: "card-1", Status: models.CardStatusWaitingActivation, OwnerID: "acc-1"})
		require.NoError(t, svc.SetupPin(ctx, "card-1", "1234"))
		account, err := mem.GetAccount(ctx, "acc-1")
		require.NoError(t, err)
		return svc, account
	}

	t.Run("correct pin returns the linked account", func(t *testing.T) {
		svc, want := activate(t)

		account, err := svc.VerifyPin(ctx, "card-1", "1234")
		require.NoError(t, err)
		assert.Equal(t, want.ID, account.ID)
		assert.Equal(t, want.Username, account.Username)
	})

	t.Run("wrong pin reports attempts remaining", func(t *testing.T) {
		svc, _ := activate(t)

		_, err := svc.VerifyPin(ctx, "card-1", "0000")
		var e *apperr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, apperr.KindInvalidPin, e.Kind)
		assert.Equal(t, 2, e.Meta["attempts_remaining"])
		assert.Equal(t, false, e.Meta["blocked"])
	})

	t.Run("lockout blocks the card", func(t *testing.T) {
		svc, _ := activate(t)

		_, _ = svc.VerifyPin(ctx, "card-1", "0000")
		_, _ = svc.VerifyPin(ctx, "card-1", "0000")
		_, err := svc.VerifyPin(ctx, "card-1", "0000")
		var e *apperr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, apperr.KindInvalidPin, e.Kind)
		assert.Equal(t, true, e.Meta["blocked"])

		// Even the right pin is refused once blocked.
		_, err = svc.VerifyPin(ctx, "card-1", "1234")
		assert.Equal(t, apperr.KindCardBlocked, apperr.KindOf(err))
	})

	t.Run("correct pin resets the counter", func(t *testing.T) {
		svc, _ := activate(t)

		_, _ = svc.VerifyPin(ctx, "card-1", "0000")
		_, _ = svc.VerifyPin(ctx, "card-1", "0000")
		_, err := svc.VerifyPin(ctx, "card-1", "1234")
		require.NoError(t, err)

		// Two more failures are tolerated again before lockout.
		_, err = svc.VerifyPin(ctx, "card-1", "0000")
		var e *apperr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, 2, e.Meta["attempts_remaining"])
	})

	t.Run("gates", func(t *testing.T) {
		svc, mem := newTestService(t)
		mem.PutCard(models.Card{ID: "inactive", Status: models.CardStatusInactive})
		mem.PutCard(models.Card{ID: "nopin", Status: models.CardStatusActive, PublicKey: testKeyHex()})

		_, err := svc.VerifyPin(ctx, "card-1", "12x4")
		assert.Equal(t, apperr.KindInvalidPinFormat, apperr.KindOf(err))

		_, err = svc.VerifyPin(ctx, "missing", "1234")
		assert.Equal(t, apperr.KindCardNotFound, apperr.KindOf(err))

		_, err = svc.VerifyPin(ctx, "inactive", "1234")
		assert.Equal(t, apperr.KindCardNotActive, apperr.KindOf(err))

		_, err = svc.VerifyPin(ctx, "nopin", "1234")
		assert.Equal(t, apperr.KindPinNotSet, apperr.KindOf(err))
	})
}
