package service

import (
	"context"
	"time"

	"github.com/badgepay/badgepay/internal/config"
	"github.com/badgepay/badgepay/internal/store"
	"github.com/sirupsen/logrus"
)

// AlertSender delivers ops notifications. Implemented by the email sender;
// nil disables alerting.
type AlertSender interface {
	SendCardBlockedAlert(cardID string, attempts int) error
}

// Service handles business logic
type Service struct {
	store  store.Store
	log    *logrus.Logger
	config *config.Config
	alerts AlertSender

	// now is overridable in tests to drive challenge expiry.
	now func() time.Time
}

// NewService initializes a new service
func NewService(st store.Store, log *logrus.Logger, cfg *config.Config, alerts AlertSender) *Service {
	return &Service{
		store:  st,
		log:    log,
		config: cfg,
		alerts: alerts,
		now:    time.Now,
	}
}

// SweepExpiredChallenges deletes challenges past their TTL. Wired to a cron
// schedule in main; expiry-aware lookups make the sweep purely housekeeping.
func (s *Service) SweepExpiredChallenges() {
	n, err := s.store.DeleteExpiredChallenges(context.Background(), s.now().Add(-s.config.ChallengeTTL))
	if err != nil {
		s.log.Errorf("Challenge sweep failed: %v", err)
		return
	}
	if n > 0 {
		s.log.Debugf("Challenge sweep removed %d expired challenges", n)
	}
}
