package seqstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/pitradio/internal/util"
)

// advanceScript raises the counter to ARGV[1] without ever lowering it.
// Both values are canonical decimal strings, compared by length then bytes
// so counters above 2^53 keep full precision. ARGV[2] is the TTL in
// milliseconds; 0 leaves the key without expiry.
var advanceScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1]) or "0"
local want = ARGV[1]
if #want > #cur or (#want == #cur and want > cur) then
	local ttl = tonumber(ARGV[2])
	if ttl > 0 then
		redis.call("SET", KEYS[1], want, "PX", ttl)
	else
		redis.call("SET", KEYS[1], want)
	end
end
return 0
`)

// RedisSeqStore shares counters across processes and survives restarts.
// Optionally, a TTL is refreshed on every Next so idle namespaces expire.
type RedisSeqStore struct {
	rdb redis.UniversalClient
	ttl time.Duration // 0 disables expiry
}

var _ SeqStore = (*RedisSeqStore)(nil)

// NewRedisSeqStore creates a Redis-backed sequence store without TTL.
func NewRedisSeqStore(client redis.UniversalClient) *RedisSeqStore {
	return &RedisSeqStore{rdb: client}
}

// NewRedisSeqStoreWithTTL creates a Redis-backed sequence store with TTL.
// If ttl <= 0, keys do not expire.
func NewRedisSeqStoreWithTTL(client redis.UniversalClient, ttl time.Duration) *RedisSeqStore {
	return &RedisSeqStore{rdb: client, ttl: ttl}
}

// Current returns the last issued sequence number.
// Missing keys are treated as 0.
func (s *RedisSeqStore) Current(ctx context.Context, ns string) (uint64, error) {
	res, err := s.rdb.Get(ctx, util.SeqKey(ns)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis seq parse: %w", err)
	}
	return u, nil
}

// Next atomically increments the counter and (optionally) refreshes TTL.
// When ttl > 0, INCR + EXPIRE are pipelined in a single round-trip.
func (s *RedisSeqStore) Next(ctx context.Context, ns string) (uint64, error) {
	k := util.SeqKey(ns)

	if s.ttl <= 0 {
		v, err := s.rdb.Incr(ctx, k).Result()
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

// Advance raises the counter of ns to at least seq. A raised counter gets
// the store's TTL, same as Next.
func (s *RedisSeqStore) Advance(ctx context.Context, ns string, seq uint64) error {
	var ttl int64
	if s.ttl > 0 {
		ttl = s.ttl.Milliseconds()
		if ttl == 0 {
			ttl = 1
		}
	}
	return advanceScript.Run(ctx, s.rdb, []string{util.SeqKey(ns)}, strconv.FormatUint(seq, 10), ttl).Err()
}

// Close closes the underlying Redis client.
func (s *RedisSeqStore) Close(context.Context) error { return s.rdb.Close() }
