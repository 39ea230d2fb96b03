package service

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/badgepay/badgepay/internal/apperr"
	"github.com/badgepay/badgepay/internal/auth"
	"github.com/badgepay/badgepay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueChallenge(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		ch, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)
		assert.Equal(t, "card-1", ch.CardID)
		assert.Len(t, ch.Value, 64) // 32 bytes hex-encoded
	})

	t.Run("multiple challenges stay outstanding", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		first, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)
		second, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)
		assert.NotEqual(t, first.Value, second.Value)

		// The older challenge is still usable.
		_, err = svc.VerifyResponse(ctx, "card-1", first.Value, signChallenge(t, first.Value))
		assert.NoError(t, err)
	})

	t.Run("card gates", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		mem.PutCard(models.Card{ID: "inactive", Status: models.CardStatusInactive, PublicKey: testKeyHex()})
		mem.PutCard(models.Card{ID: "bare", Status: models.CardStatusActive})

		_, err := svc.IssueChallenge(ctx, "missing")
		assert.Equal(t, apperr.KindCardNotFound, apperr.KindOf(err))

		_, err = svc.IssueChallenge(ctx, "inactive")
		assert.Equal(t, apperr.KindCardNotActive, apperr.KindOf(err))

		_, err = svc.IssueChallenge(ctx, "bare")
		assert.Equal(t, apperr.KindCardNotProvisioned, apperr.KindOf(err))
	})
}

func TestVerifyResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path mints a card token", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		ch, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)

		token, err := svc.VerifyResponse(ctx, "card-1", ch.Value, signChallenge(t, ch.Value))
		require.NoError(t, err)
		assert.Equal(t, "card-1", token.CardID)
		assert.Equal(t, 3600, token.ExpiresIn)

		p, err := auth.ParseToken("test-secret", token.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.PrincipalCard, p.Kind)
		assert.Equal(t, "card-1", p.CardID)
		assert.Equal(t, "acc-1", p.AccountID)
	})

	t.Run("challenge is single-use", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		ch, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)
		sig := signChallenge(t, ch.Value)

		_, err = svc.VerifyResponse(ctx, "card-1", ch.Value, sig)
		require.NoError(t, err)

		_, err = svc.VerifyResponse(ctx, "card-1", ch.Value, sig)
		assert.Equal(t, apperr.KindChallengeInvalidOrExpired, apperr.KindOf(err))
	})

	t.Run("failed signature burns the challenge", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		ch, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)

		bad := base64.StdEncoding.EncodeToString(make([]byte, 32))
		_, err = svc.VerifyResponse(ctx, "card-1", ch.Value, bad)
		assert.Equal(t, apperr.KindInvalidSignature, apperr.KindOf(err))

		// Even the correct signature fails now: the challenge is gone.
		_, err = svc.VerifyResponse(ctx, "card-1", ch.Value, signChallenge(t, ch.Value))
		assert.Equal(t, apperr.KindChallengeInvalidOrExpired, apperr.KindOf(err))
	})

	t.Run("expired challenge rejected with correct signature", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		ch, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)

		svc.now = func() time.Time { return time.Now().Add(301 * time.Second) }
		_, err = svc.VerifyResponse(ctx, "card-1", ch.Value, signChallenge(t, ch.Value))
		assert.Equal(t, apperr.KindChallengeInvalidOrExpired, apperr.KindOf(err))
	})

	t.Run("concurrent verifications succeed exactly once", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		ch, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)
		sig := signChallenge(t, ch.Value)

		const n = 8
		var mu sync.Mutex
		var successes, replays int
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.VerifyResponse(ctx, "card-1", ch.Value, sig)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if apperr.IsKind(err, apperr.KindChallengeInvalidOrExpired) {
					replays++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, replays)
	})

	t.Run("unassigned card cannot authenticate", func(t *testing.T) {
		svc, mem := newTestService(t)
		mem.PutCard(models.Card{ID: "orphan", Status: models.CardStatusActive, PublicKey: testKeyHex()})

		ch, err := svc.IssueChallenge(ctx, "orphan")
		require.NoError(t, err)
		_, err = svc.VerifyResponse(ctx, "orphan", ch.Value, signChallenge(t, ch.Value))
		assert.Equal(t, apperr.KindInvalidCardState, apperr.KindOf(err))
	})

	t.Run("malformed signature encoding", func(t *testing.T) {
		svc, mem := newTestService(t)
		seedAccount(mem, "acc-1", models.RoleUser)
		seedActiveCard(mem, "card-1", "acc-1")

		ch, err := svc.IssueChallenge(ctx, "card-1")
		require.NoError(t, err)
		_, err = svc.VerifyResponse(ctx, "card-1", ch.Value, "%%%not-base64%%%")
		assert.Equal(t, apperr.KindInvalidSignature, apperr.KindOf(err))
	})
}
