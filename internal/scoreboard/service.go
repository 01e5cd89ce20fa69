package scoreboard

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/mind-engage/mindengage-results/internal/apperr"
	"github.com/mind-engage/mindengage-results/internal/rbac"
	syncx "github.com/mind-engage/mindengage-results/internal/sync"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	leaderboardPrefix = "leaderboard:"
)

type Store interface {
	Leaderboard(ctx context.Context, limit int) ([]Entry, error)
	MyScores(ctx context.Context, userID string) (MyScores, error)
}

// Service serves score aggregates, optionally through a cache. It is also a
// syncx.Recorder so score-changing events drop cached leaderboards.
type Service struct {
	store Store
	cache Cache // nil disables caching
	ttl   time.Duration
}

func NewService(store Store, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{store: store, cache: cache, ttl: ttl}
}

var _ syncx.Recorder = (*Service)(nil)

func (s *Service) Leaderboard(ctx context.Context, id rbac.Identity, limit int) ([]Entry, error) {
	if err := canView(id); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	key := leaderboardPrefix + strconv.Itoa(limit)

	if s.cache != nil {
		var cached []Entry
		err := getJSON(ctx, s.cache, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			slog.WarnContext(ctx, "leaderboard cache read", "key", key, "err", err)
		}
	}

	out, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := setJSON(ctx, s.cache, key, out, s.ttl); err != nil {
			slog.WarnContext(ctx, "leaderboard cache write", "key", key, "err", err)
		}
	}
	return out, nil
}

func (s *Service) MyScores(ctx context.Context, id rbac.Identity) (MyScores, error) {
	if err := canView(id); err != nil {
		return MyScores{}, err
	}
	return s.store.MyScores(ctx, id.UserID)
}

// Record invalidates cached leaderboards on events that change scores or
// what a leaderboard row shows.
func (s *Service) Record(ctx context.Context, typ, _ string, _ any) error {
	if s.cache == nil {
		return nil
	}
	switch typ {
	case syncx.EventAttemptFinished, syncx.EventExamSubmitted, syncx.EventSubmissionGraded,
		syncx.EventUserRegistered, syncx.EventProfileUpdated, syncx.EventRoleChanged:
		return s.cache.DeletePrefix(ctx, leaderboardPrefix)
	}
	return nil
}

func canView(id rbac.Identity) error {
	if id.IsZero() {
		return apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	if !id.Can("scores:view") {
		return apperr.Forbidden("forbidden")
	}
	return nil
}
