package store

import (
	"context"
	"errors"
	"sync"

	"mt4bridge/internal/market"
)

// KlineStore keeps recorded candles per symbol@timeframe.
type KlineStore interface {
	Put(ctx context.Context, symbol, timeframe string, ks []market.Candle, max int) error
	Get(ctx context.Context, symbol, timeframe string) ([]market.Candle, error)
}

type MemoryKlineStore struct {
	shards []klineShard
}

type klineShard struct {
	mu   sync.RWMutex
	data map[string][]market.Candle
}

const defaultShardCount = 32

func NewMemoryKlineStore() *MemoryKlineStore {
	return newMemoryKlineStore(defaultShardCount)
}

func newMemoryKlineStore(shards int) *MemoryKlineStore {
	if shards <= 0 {
		shards = 1
	}
	out := &MemoryKlineStore{
		shards: make([]klineShard, shards),
	}
	for i := range out.shards {
		out.shards[i] = klineShard{data: make(map[string][]market.Candle)}
	}
	return out
}

func (s *MemoryKlineStore) shardFor(key string) *klineShard {
	idx := hashKey(key) % uint32(len(s.shards))
	return &s.shards[idx]
}

func key(symbol, timeframe string) string { return symbol + "@" + timeframe }

// Put merges a batch into the cached series and trims it to max. Batches
// arrive in wire order and overlap the tail of the previous batch (the poller
// re-fetches closed bars plus the still-open one), so each incoming candle
// replaces its cached bar by time; bars older than the tail that are not in
// the overlap window are stale re-sends and get dropped rather than appended
// out of order.
func (s *MemoryKlineStore) Put(ctx context.Context, symbol, timeframe string, ks []market.Candle, max int) error {
	if symbol == "" || timeframe == "" {
		return errors.New("symbol/timeframe cannot be empty")
	}
	if len(ks) == 0 {
		return nil
	}
	if max <= 0 {
		max = 100
	}
	k := key(symbol, timeframe)
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur := sh.data[k]
	for _, candle := range ks {
		// the overlap can never be deeper than the batch itself
		floor := len(cur) - len(ks)
		if floor < 0 {
			floor = 0
		}
		merged := false
		for i := len(cur) - 1; i >= floor; i-- {
			if cur[i].Time == candle.Time {
				cur[i] = candle
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		if n := len(cur); n > 0 {
			if ts, tail := candle.OpenTime(), cur[n-1].OpenTime(); ts != 0 && tail != 0 && ts < tail {
				continue
			}
		}
		cur = append(cur, candle)
	}
	if len(cur) > max {
		cur = cur[len(cur)-max:]
	}
	sh.data[k] = cur
	return nil
}

func (s *MemoryKlineStore) Get(ctx context.Context, symbol, timeframe string) ([]market.Candle, error) {
	k := key(symbol, timeframe)
	sh := s.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	cur := sh.data[k]
	out := make([]market.Candle, len(cur))
	copy(out, cur)
	return out, nil
}

// Export returns up to limit of the newest candles.
func (s *MemoryKlineStore) Export(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if symbol == "" || timeframe == "" {
		return nil, errors.New("symbol/timeframe cannot be empty")
	}
	if limit <= 0 {
		return nil, nil
	}
	k := key(symbol, timeframe)
	sh := s.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	cur := sh.data[k]
	if len(cur) == 0 {
		return nil, nil
	}
	if limit > len(cur) {
		limit = len(cur)
	}
	out := make([]market.Candle, limit)
	copy(out, cur[len(cur)-limit:])
	return out, nil
}

func hashKey(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	var h uint32 = offset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
