package service

import (
	"context"
	"log"
	"time"

	"shotzi/internal/cache"
	"shotzi/internal/repository"
)

// PresenceService records heartbeats. Heartbeats are fire-and-forget: a
// failed write must never surface to the caller as anything but a log line,
// so Heartbeat has no error return.
type PresenceService struct {
	userRepo repository.UserRepository
	presence cache.Presence
}

func NewPresenceService(userRepo repository.UserRepository, presence cache.Presence) *PresenceService {
	return &PresenceService{
		userRepo: userRepo,
		presence: presence,
	}
}

// Heartbeat records activity for a user in both the cache and the
// last_active column.
func (s *PresenceService) Heartbeat(ctx context.Context, userID int64) {
	now := time.Now()

	if s.presence != nil {
		if err := s.presence.Touch(ctx, userID, now); err != nil {
			log.Printf("[Presence] Heartbeat cache FAILED: user=%d err=%v", userID, err)
		}
	}

	if err := s.userRepo.TouchLastActive(ctx, userID, now); err != nil {
		log.Printf("[Presence] Heartbeat db FAILED: user=%d err=%v", userID, err)
	}
}

// IsOnline reports whether a user was recently active, preferring the cache.
func (s *PresenceService) IsOnline(ctx context.Context, userID int64) bool {
	if s.presence != nil {
		online, err := s.presence.IsOnline(ctx, userID, time.Now())
		if err == nil {
			return online
		}
		log.Printf("[Presence] IsOnline cache FAILED: user=%d err=%v", userID, err)
	}
	return false
}
