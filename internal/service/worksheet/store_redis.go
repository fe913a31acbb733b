package worksheet

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultServedTTL = 6 * time.Hour

// ServedStore remembers which puzzle ids were recently printed per theme
// so consecutive worksheets avoid handing out the same puzzles. Entries
// expire after the configured TTL. Best-effort: callers treat failures as
// advisory.
type ServedStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewServedStore(rdb *redis.Client, ttl time.Duration) *ServedStore {
	if ttl <= 0 {
		ttl = defaultServedTTL
	}
	return &ServedStore{rdb: rdb, ttl: ttl}
}

func (s *ServedStore) key(theme string) string {
	return "worksheet:served:" + strings.TrimSpace(theme)
}

func (s *ServedStore) MarkServed(ctx context.Context, theme string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		members = append(members, id)
	}
	if len(members) == 0 {
		return nil
	}
	key := s.key(theme)
	if err := s.rdb.SAdd(ctx, key, members...).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, s.ttl).Err()
}

func (s *ServedStore) RecentlyServed(ctx context.Context, theme string) (map[string]struct{}, error) {
	ids, err := s.rdb.SMembers(ctx, s.key(theme)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
