package ess

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pipeline batches a sequence of ESS writes so they execute as one round
// trip — "atomic from the client's point of view (not transactional w.r.t.
// other clients)" per §4.1. Used by leaveCanvas (delete presence + cursor +
// all focus/typing keys in one shot) and focusConversation (clear prior
// focus, write new one).
type Pipeline struct {
	pipe redis.Pipeliner
}

// Pipeline starts a new batched pipeline.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{pipe: c.rdb.TxPipeline()}
}

// SetJSON queues a JSON write.
func (p *Pipeline) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) *Pipeline {
	data, err := json.Marshal(v)
	if err != nil {
		return p
	}
	p.pipe.Set(ctx, key, data, ttl)
	return p
}

// HashSet queues a hash write with TTL.
func (p *Pipeline) HashSet(ctx context.Context, key string, fields map[string]string, ttl time.Duration) *Pipeline {
	p.pipe.HSet(ctx, key, toAnySlice(fields))
	if ttl > 0 {
		p.pipe.Expire(ctx, key, ttl)
	}
	return p
}

// SetAdd queues a set-membership add.
func (p *Pipeline) SetAdd(ctx context.Context, key, member string) *Pipeline {
	p.pipe.SAdd(ctx, key, member)
	return p
}

// SetRemove queues a set-membership removal.
func (p *Pipeline) SetRemove(ctx context.Context, key, member string) *Pipeline {
	p.pipe.SRem(ctx, key, member)
	return p
}

// Delete queues key deletion.
func (p *Pipeline) Delete(ctx context.Context, keys ...string) *Pipeline {
	if len(keys) > 0 {
		p.pipe.Del(ctx, keys...)
	}
	return p
}

// Exec runs every queued operation in one round trip.
func (p *Pipeline) Exec(ctx context.Context) error {
	if _, err := p.pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}
	return nil
}
