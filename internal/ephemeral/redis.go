package ephemeral

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStore keeps one sorted set per forum, member = user id, score =
// unix milliseconds of the last signal. An index set records which forums
// have a sorted set so Sweep does not need SCAN.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisClient parses redisURL and pings the server
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return c, nil
}

// NewRedisStore creates a store whose keys live under namespace, e.g.
// "presence" or "typing"
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{client: client, namespace: namespace}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) key(forumID int64) string {
	return "forum:" + strconv.FormatInt(forumID, 10) + ":" + s.namespace
}

func (s *RedisStore) indexKey() string {
	return s.namespace + ":forums"
}

func millis(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (s *RedisStore) Touch(ctx context.Context, forumID, userID int64, at time.Time) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.key(forumID), redis.Z{Score: millis(at), Member: userID})
		pipe.SAdd(ctx, s.indexKey(), forumID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: touch: %w", err)
	}
	return nil
}

// refreshScript re-stamps a member only while its score is above the
// cutoff. KEYS[1] = forum set; ARGV = member, cutoff ms, new score.
var refreshScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if not score or tonumber(score) <= tonumber(ARGV[2]) then
	return 0
end
redis.call('ZADD', KEYS[1], 'XX', ARGV[3], ARGV[1])
return 1
`)

func (s *RedisStore) Refresh(ctx context.Context, forumID, userID int64, at, cutoff time.Time) (bool, error) {
	keys := []string{s.key(forumID)}
	n, err := refreshScript.Run(ctx, s.client, keys, userID, cutoff.UnixMilli(), at.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("redis: refresh: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStore) Remove(ctx context.Context, forumID, userID int64) error {
	if err := s.client.ZRem(ctx, s.key(forumID), userID).Err(); err != nil {
		return fmt.Errorf("redis: remove: %w", err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context, forumID int64, since time.Time) (int, error) {
	lo := "(" + strconv.FormatInt(since.UnixMilli(), 10)
	n, err := s.client.ZCount(ctx, s.key(forumID), lo, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis: count: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Users(ctx context.Context, forumID int64, since time.Time) ([]int64, error) {
	members, err := s.client.ZRangeByScore(ctx, s.key(forumID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: users: %w", err)
	}

	users := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}

// sweepScript trims one forum set and drops it from the index once it is
// empty. Running as a script keeps a concurrent Touch from landing between
// the emptiness check and the SREM. KEYS = forum set, index set; ARGV =
// cutoff ms, forum id.
var sweepScript = redis.NewScript(`
local removed = redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) == 0 then
	redis.call('SREM', KEYS[2], ARGV[2])
end
return removed
`)

func (s *RedisStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	forums, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: sweep: %w", err)
	}

	removed := 0
	for _, f := range forums {
		forumID, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		keys := []string{s.key(forumID), s.indexKey()}
		n, err := sweepScript.Run(ctx, s.client, keys, before.UnixMilli(), f).Int()
		if err != nil {
			return removed, fmt.Errorf("redis: sweep: %w", err)
		}
		removed += n
	}
	return removed, nil
}

func (s *RedisStore) DeleteForum(ctx context.Context, forumID int64) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(forumID))
		pipe.SRem(ctx, s.indexKey(), forumID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete forum: %w", err)
	}
	return nil
}
