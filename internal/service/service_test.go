package service

import (
	"encoding/base64"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/badgepay/badgepay/internal/config"
	"github.com/badgepay/badgepay/internal/models"
	"github.com/badgepay/badgepay/internal/store"
	"github.com/badgepay/badgepay/internal/utils"
	"github.com/sirupsen/logrus"
)

// testKey is the 32-byte card key used across service tests, hex-encoded as
// it would be provisioned out-of-band.
var testKey = []byte("0123456789abcdef0123456789abcdef")

func testKeyHex() string { return hex.EncodeToString(testKey) }

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		ChallengeTTL:   300 * time.Second,
		CardTokenTTL:   time.Hour,
		MaxPinAttempts: 3,
	}
	return NewService(mem, log, cfg, nil), mem
}

func seedAccount(mem *store.Memory, id, role string) {
	mem.PutAccount(models.Account{ID: id, Name: "Account " + id, Username: id, Role: role})
}

func seedActiveCard(mem *store.Memory, id, ownerID string) {
	mem.PutCard(models.Card{
		ID:        id,
		Status:    models.CardStatusActive,
		PublicKey: testKeyHex(),
		PinHash:   "$2a$10$placeholderplaceholderplaceholderplaceho",
		OwnerID:   ownerID,
	})
}

// signChallenge produces the base64 response a card would compute off-device.
func signChallenge(t *testing.T, challengeHex string) string {
	t.Helper()
	raw, err := hex.DecodeString(challengeHex)
	if err != nil {
		t.Fatalf("bad challenge hex: %v", err)
	}
	return base64.StdEncoding.EncodeToString(utils.SignChallenge(testKey, raw))
}
