package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// ChallengeSize is the entropy of an authentication challenge in bytes.
const ChallengeSize = 32

// SignatureSize is the length of a challenge response signature in bytes.
const SignatureSize = sha256.Size

// GenerateChallenge generates a fresh random challenge, hex-encoded
func GenerateChallenge() (string, error) {
	b := make([]byte, ChallengeSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SignChallenge computes the expected response signature for a challenge:
// HMAC-SHA256 keyed with the card's registered key over the challenge bytes.
func SignChallenge(key, challenge []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(challenge)
	return h.Sum(nil)
}

// VerifySignature compares a supplied signature against the expected one in
// constant time. A plain byte compare here would be a security defect.
func VerifySignature(key, challenge, signature []byte) bool {
	expected := SignChallenge(key, challenge)
	return hmac.Equal(signature, expected)
}

var pinRegex = regexp.MustCompile(`^[0-9]{4}$`)

// ValidPinFormat reports whether pin is a well-formed 4-digit PIN
func ValidPinFormat(pin string) bool {
	return pinRegex.MatchString(pin)
}
