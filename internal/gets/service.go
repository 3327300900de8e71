package gets

import (
	"context"
	"time"

	"mafia-game-bot/internal/pkg/lock"
)

// Service wraps the repository with per-user locking so a user spamming
// /get cannot race two claims past the cooldown check.
type Service struct {
	repo     *Repository
	userLock *lock.UserLock
	cooldown time.Duration
}

// NewService creates a new Service instance.
func NewService(repo *Repository, userLock *lock.UserLock, cooldown time.Duration) *Service {
	return &Service{
		repo:     repo,
		userLock: userLock,
		cooldown: cooldown,
	}
}

// Claim records one get for the user and returns the new total.
// Returns ErrOnCooldown if the user claimed too recently.
func (s *Service) Claim(ctx context.Context, userID int64, username string) (int64, error) {
	var count int64
	err := s.userLock.WithLock(userID, func() error {
		var err error
		count, err = s.repo.Claim(ctx, userID, username, s.cooldown)
		return err
	})
	return count, err
}

// Count returns the user's current tally.
func (s *Service) Count(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountFor(ctx, userID)
}

// Top returns the leaderboard.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	return s.repo.Top(ctx, limit)
}
