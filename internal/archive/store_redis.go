package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ryankkien/pokemon-showdown/internal/battle"
)

const (
	keyRecent  = "battles:recent"
	recentCap  = 100
	ttlResults = 30 * 24 * time.Hour
)

// Store keeps recent battle results and per-player win/loss counters in
// Redis. It records facts only; ranking lives outside this module.
type Store struct {
	rdb *redis.Client
}

func NewStore(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{rdb: redis.NewClient(opts)}, nil
}

// NewStoreWithClient wraps an existing client; used by tests.
func NewStoreWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) keyWins(player string) string   { return "battles:wins:" + strings.TrimSpace(player) }
func (s *Store) keyLosses(player string) string { return "battles:losses:" + strings.TrimSpace(player) }

// SaveResult prepends the result to the recent list (bounded) and bumps the
// winner/loser counters.
func (s *Store) SaveResult(ctx context.Context, r battle.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, keyRecent, raw)
	pipe.LTrim(ctx, keyRecent, 0, recentCap-1)
	pipe.Expire(ctx, keyRecent, ttlResults)
	if r.Winner != "" {
		pipe.Incr(ctx, s.keyWins(r.Winner))
		if loser := r.Loser(); loser != "" {
			pipe.Incr(ctx, s.keyLosses(loser))
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n results, most recent first.
func (s *Store) Recent(ctx context.Context, n int) ([]battle.Result, error) {
	if n <= 0 || n > recentCap {
		n = recentCap
	}
	raws, err := s.rdb.LRange(ctx, keyRecent, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]battle.Result, 0, len(raws))
	for _, raw := range raws {
		var r battle.Result
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Wins returns the recorded win count for a player.
func (s *Store) Wins(ctx context.Context, player string) (int64, error) {
	n, err := s.rdb.Get(ctx, s.keyWins(player)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// Losses returns the recorded loss count for a player.
func (s *Store) Losses(ctx context.Context, player string) (int64, error) {
	n, err := s.rdb.Get(ctx, s.keyLosses(player)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
