package sessions

import (
	"context"
	"time"

	"github.com/demonically2004/ziota/internal/tokens"
	"github.com/demonically2004/ziota/pkg/logger"
	"github.com/google/uuid"
)

// Service issues and checks refresh sessions.
type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now; tests use it to step past expiry.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(r Repository, opts ...Option) *Service {
	s := &Service{repo: r, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateSession stores a session for userID lasting ttl and returns its refresh token.
func (s *Service) CreateSession(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	refresh, err := tokens.NewRefreshToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	sess := &Session{
		ID:           uuid.NewString(),
		RefreshToken: refresh,
		UserID:       userID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return refresh, nil
}

// ValidateRefresh returns the live session for refresh, or nil when it is
// unknown or expired. Expired sessions are removed on sight.
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	if refresh == "" {
		return nil, nil
	}
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil || sess == nil {
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
			logger.Warnf("failed to drop expired session %s: %v", sess.ID, err)
		}
		return nil, nil
	}
	return sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}
