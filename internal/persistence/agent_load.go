package persistence

import (
	"context"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

const agentLoadKey = "escalation:agent_open_tickets"

// RedisAgentLoad keeps per-agent open ticket counters in a Redis hash so
// every instance sees the same load without rescanning tickets.
type RedisAgentLoad struct {
	client *redis.Client
	key    string
}

// NewRedisAgentLoad builds a Redis-backed counter.
func NewRedisAgentLoad(client *redis.Client) *RedisAgentLoad {
	return &RedisAgentLoad{client: client, key: agentLoadKey}
}

// Adjust adds delta to the agent's counter.
func (l *RedisAgentLoad) Adjust(ctx context.Context, agentID string, delta int) error {
	return l.client.HIncrBy(ctx, l.key, agentID, int64(delta)).Err()
}

// Loads returns counters for the given agents; missing agents count as zero.
func (l *RedisAgentLoad) Loads(ctx context.Context, agentIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(agentIDs))
	if len(agentIDs) == 0 {
		return out, nil
	}
	values, err := l.client.HMGet(ctx, l.key, agentIDs...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		if n < 0 {
			n = 0
		}
		out[agentIDs[i]] = n
	}
	return out, nil
}

// Reset replaces all counters with counts.
func (l *RedisAgentLoad) Reset(ctx context.Context, counts map[string]int) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, l.key)
		if len(counts) == 0 {
			return nil
		}
		fields := make(map[string]any, len(counts))
		for id, n := range counts {
			fields[id] = n
		}
		pipe.HSet(ctx, l.key, fields)
		return nil
	})
	return err
}

// MemoryAgentLoad is the in-process counter used when Redis is disabled.
type MemoryAgentLoad struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryAgentLoad builds an empty in-process counter.
func NewMemoryAgentLoad() *MemoryAgentLoad {
	return &MemoryAgentLoad{counts: map[string]int{}}
}

func (l *MemoryAgentLoad) Adjust(_ context.Context, agentID string, delta int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[agentID] += delta
	if l.counts[agentID] < 0 {
		l.counts[agentID] = 0
	}
	return nil
}

func (l *MemoryAgentLoad) Loads(_ context.Context, agentIDs []string) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(agentIDs))
	for _, id := range agentIDs {
		if n, ok := l.counts[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

func (l *MemoryAgentLoad) Reset(_ context.Context, counts map[string]int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts = make(map[string]int, len(counts))
	for id, n := range counts {
		l.counts[id] = n
	}
	return nil
}
