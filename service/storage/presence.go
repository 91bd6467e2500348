package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: am:presence:<user>
// TTL bounds how stale an online marker can get if a node dies without
// cleaning up.
func presenceKey(userID int64) string {
	return "am:presence:" + strconv.FormatInt(userID, 10)
}

// PresenceStore is the presence collaborator: a redis key per online
// user, written when the first connection registers and deleted on the
// user-offline transition.
type PresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceStore(rdb *redis.Client, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &PresenceStore{rdb: rdb, ttl: ttl}
}

// Online marks the user online and renews the TTL.
func (p *PresenceStore) Online(ctx context.Context, userID int64) error {
	return errors.Wrap(p.rdb.Set(ctx, presenceKey(userID), "1", p.ttl).Err(), "presence online")
}

// Offline removes the marker. Deleting an absent key is fine.
func (p *PresenceStore) Offline(ctx context.Context, userID int64) error {
	return errors.Wrap(p.rdb.Del(ctx, presenceKey(userID)).Err(), "presence offline")
}
