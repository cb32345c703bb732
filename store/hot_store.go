package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sitepulse/api/logger"
	"sitepulse/api/models"
)

const hotSessionsKey = "hot_sessions"

// HotStore keeps a Redis sorted set of session uuids scored by intent
// score, so sales staff can pull the current hot list without a table
// scan. Sessions enter the set when they classify hot or qualified and
// leave it when a rescore drops them below.
type HotStore struct {
	rdb *redis.Client
	log *logger.Logger
}

func NewHotStore(rdb *redis.Client, log *logger.Logger) *HotStore {
	return &HotStore{rdb: rdb, log: log.With("store", "hot_sessions")}
}

func (s *HotStore) Update(ctx context.Context, sessionUUID string, score float64, level models.IntentLevel) error {
	if level == models.LevelHot || level == models.LevelQualified {
		if err := s.rdb.ZAdd(ctx, hotSessionsKey, redis.Z{Score: score, Member: sessionUUID}).Err(); err != nil {
			return fmt.Errorf("failed to add hot session: %w", err)
		}
		return nil
	}
	if err := s.rdb.ZRem(ctx, hotSessionsKey, sessionUUID).Err(); err != nil {
		return fmt.Errorf("failed to remove cooled session: %w", err)
	}
	return nil
}

type HotSession struct {
	UUID  string  `json:"uuid"`
	Score float64 `json:"score"`
}

// Top returns the highest-scoring sessions, best first.
func (s *HotStore) Top(ctx context.Context, limit int) ([]HotSession, error) {
	if limit <= 0 {
		limit = 20
	}
	members, err := s.rdb.ZRevRangeWithScores(ctx, hotSessionsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read hot sessions: %w", err)
	}
	out := make([]HotSession, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		out = append(out, HotSession{UUID: id, Score: m.Score})
	}
	return out, nil
}
