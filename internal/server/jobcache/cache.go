// Package jobcache keeps the latest status snapshot of each job in Redis so
// status polls are served without touching Postgres.
package jobcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/common"
	"github.com/dmitrijs2005/mindwell/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mindwell:job:"

// setScript replaces a snapshot unless the stored one is terminal or further
// along. ARGV: snapshot, ttl in ms (0 keeps no expiry), progress, terminal flag.
var setScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur then
  local ok, old = pcall(cjson.decode, cur)
  if ok and type(old) == "table" then
    if old.status == "completed" or old.status == "error" then
      return 0
    end
    if ARGV[4] == "0" and tonumber(ARGV[3]) < (tonumber(old.progress) or 0) then
      return 0
    end
  end
end
if tonumber(ARGV[2]) > 0 then
  redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
else
  redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// RedisCache stores JobView snapshots as JSON strings.
type RedisCache struct {
	client *redis.Client
	// ActiveTTL applies to non-terminal snapshots, TerminalTTL to finished ones.
	ActiveTTL   time.Duration
	TerminalTTL time.Duration
}

func NewRedisCache(client *redis.Client, activeTTL, terminalTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, ActiveTTL: activeTTL, TerminalTTL: terminalTTL}
}

func key(jobID string) string {
	return keyPrefix + jobID
}

// Get returns common.ErrorNotFound on a cache miss.
func (c *RedisCache) Get(ctx context.Context, jobID string) (*models.JobView, error) {
	raw, err := c.client.Get(ctx, key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var v models.JobView
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode cached status: %w", err)
	}
	return &v, nil
}

func (c *RedisCache) ttl(v models.JobView) time.Duration {
	if v.Status.IsTerminal() {
		return c.TerminalTTL
	}
	return c.ActiveTTL
}

// Set stores a job transition. A terminal snapshot is never replaced and
// progress never moves backwards.
func (c *RedisCache) Set(ctx context.Context, v models.JobView) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	terminal := "0"
	if v.Status.IsTerminal() {
		terminal = "1"
	}
	err = setScript.Run(ctx, c.client, []string{key(v.JobID)},
		string(raw), c.ttl(v).Milliseconds(), v.Progress, terminal).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Fill stores a snapshot read from the database only when nothing is cached
// yet, so a transition published meanwhile always wins.
func (c *RedisCache) Fill(ctx context.Context, v models.JobView) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.client.SetNX(ctx, key(v.JobID), raw, c.ttl(v)).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, jobID string) error {
	if err := c.client.Del(ctx, key(jobID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
