package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/badgepay/badgepay/internal/models"
)

type challengeKey struct {
	value  string
	cardID string
}

// Memory is an in-memory Store used by tests and local development.
type Memory struct {
	mu           sync.Mutex
	cards        map[string]models.Card
	accounts     map[string]models.Account
	challenges   map[challengeKey]models.Challenge
	transactions []models.Transaction

	// accountLocks serializes solvency-check-and-append per source account.
	accountLocks map[string]*sync.Mutex
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		cards:        make(map[string]models.Card),
		accounts:     make(map[string]models.Account),
		challenges:   make(map[challengeKey]models.Challenge),
		accountLocks: make(map[string]*sync.Mutex),
	}
}

// PutCard inserts or replaces a card. Card directory writes belong to the
// excluded CRUD layer; this exists for seeding and tests.
func (m *Memory) PutCard(card models.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.ID] = card
}

// PutAccount inserts or replaces an account.
func (m *Memory) PutAccount(account models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *Memory) GetCard(_ context.Context, id string) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, ErrCardNotFound
	}
	return &card, nil
}

func (m *Memory) GetAccount(_ context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (m *Memory) CreateChallenge(_ context.Context, ch *models.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[challengeKey{ch.Value, ch.CardID}] = *ch
	return nil
}

func (m *Memory) TakeChallenge(_ context.Context, value, cardID string, notBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := challengeKey{value, cardID}
	ch, ok := m.challenges[key]
	if !ok {
		return false, nil
	}
	// Consumed either way: a stale challenge is deleted, not returned.
	delete(m.challenges, key)
	if ch.IssuedAt.Before(notBefore) {
		return false, nil
	}
	return true, nil
}

func (m *Memory) DeleteExpiredChallenges(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, ch := range m.challenges {
		if ch.IssuedAt.Before(before) {
			delete(m.challenges, key)
			n++
		}
	}
	return n, nil
}

func (m *Memory) ActivateCard(_ context.Context, cardID, pinHash string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[cardID]
	if !ok {
		return false, ErrCardNotFound
	}
	if card.Status != models.CardStatusWaitingActivation {
		return false, nil
	}
	card.Status = models.CardStatusActive
	card.PinHash = pinHash
	card.PinSetAt = &at
	card.PinAttempts = 0
	card.UpdatedAt = at
	m.cards[cardID] = card
	return true, nil
}

func (m *Memory) RecordPinFailure(_ context.Context, cardID string, maxAttempts int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[cardID]
	if !ok {
		return 0, false, ErrCardNotFound
	}
	card.PinAttempts++
	blocked := card.PinAttempts >= maxAttempts
	if blocked {
		card.Status = models.CardStatusBlocked
	}
	m.cards[cardID] = card
	remaining := maxAttempts - card.PinAttempts
	if remaining < 0 {
		remaining = 0
	}
	return remaining, blocked, nil
}

func (m *Memory) ResetPinAttempts(_ context.Context, cardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[cardID]
	if !ok {
		return ErrCardNotFound
	}
	card.PinAttempts = 0
	m.cards[cardID] = card
	return nil
}

func (m *Memory) SumAccount(_ context.Context, accountID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumLocked(accountID), nil
}

func (m *Memory) sumLocked(accountID string) int64 {
	var sum int64
	for _, t := range m.transactions {
		if t.DestinationAccountID == accountID {
			sum += t.Amount
		}
		if t.SourceAccountID == accountID {
			sum -= t.Amount
		}
	}
	return sum
}

func (m *Memory) lockAccount(accountID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.accountLocks[accountID]
	if !ok {
		l = &sync.Mutex{}
		m.accountLocks[accountID] = l
	}
	return l
}

func (m *Memory) AppendTransaction(_ context.Context, t *models.Transaction, enforceSolvency bool) error {
	l := m.lockAccount(t.SourceAccountID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if enforceSolvency && m.sumLocked(t.SourceAccountID)-t.Amount < 0 {
		return ErrInsufficientFunds
	}
	m.transactions = append(m.transactions, *t)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, accountID string, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, t := range m.transactions {
		if accountID == "" || t.SourceAccountID == accountID || t.DestinationAccountID == accountID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
