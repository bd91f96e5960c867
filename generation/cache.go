package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/swarmchat/types"
)

const cacheKeyPrefix = "swarmchat:gen:"

// CachedClient is a read-through redis cache in front of a generation
// client, keyed by a content hash of the roster registry and history
// window. Redis failures degrade to a cache miss; they never fail the
// generation call.
type CachedClient struct {
	inner  Client
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedClient wraps inner with a response cache.
func NewCachedClient(inner Client, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedClient{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "generation_cache")),
	}
}

// Generate serves from cache when an identical request was answered
// recently, otherwise delegates and stores the result.
func (c *CachedClient) Generate(ctx context.Context, req Request) (*types.DiscussionResponse, error) {
	key := c.key(req)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var resp types.DiscussionResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			c.logger.Debug("cache hit", zap.String("conversation_id", req.ConversationID))
			return &resp, nil
		}
	} else if err != redis.Nil {
		c.logger.Debug("cache read failed", zap.Error(err))
	}

	resp, err := c.inner.Generate(ctx, req)
	if err != nil || resp == nil {
		return resp, err
	}

	// Empty responses are not worth caching: they usually mean the
	// boundary failed and a retry should go back to the service.
	if !resp.Empty() {
		if data, err := json.Marshal(resp); err == nil {
			if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.logger.Debug("cache write failed", zap.Error(err))
			}
		}
	}
	return resp, nil
}

// key hashes the request content. Message ids and timestamps are left out
// so identical content hashes identically across runs.
func (c *CachedClient) key(req Request) string {
	h := sha256.New()
	for _, p := range req.Roster {
		fmt.Fprintf(h, "%s|%s|%s|%s\n", p.ID, p.Name, p.Expertise, p.CommunicationStyle)
	}
	for _, m := range req.History {
		fmt.Fprintf(h, "%s|%s|%s", m.SenderID, m.Kind, m.Text)
		if m.Poll != nil {
			fmt.Fprintf(h, "|%s", m.Poll.Question)
			for _, o := range m.Poll.Options {
				fmt.Fprintf(h, "|%s=%d", o.Text, o.Votes)
			}
		}
		fmt.Fprintln(h)
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
