package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"marketingvoice/internal/redis"
)

const (
	streamKeyPrefix  = "stream:"
	defaultStreamTTL = 24 * time.Hour
	followBlock      = 2 * time.Second
)

// Context persists generation events to redis streams so a reconnecting
// client can replay and follow an in-flight generation. It is optional
// infrastructure: construction fails when no redis client is available and
// callers treat a nil Context as "resumption disabled".
type Context struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewContext builds a stream context over the shared redis client.
func NewContext(client *redis.Client, ttl time.Duration, log zerolog.Logger) (*Context, error) {
	if client == nil || client.Raw() == nil {
		return nil, errors.New("redis client required for resumable streams")
	}
	if ttl <= 0 {
		ttl = defaultStreamTTL
	}
	return &Context{client: client, ttl: ttl, log: log}, nil
}

func streamKey(id string) string {
	return streamKeyPrefix + id
}

// Append records one event under the stream id.
func (c *Context) Append(ctx context.Context, id string, ev Event) error {
	payload, err := ev.encode()
	if err != nil {
		return fmt.Errorf("encode stream event: %w", err)
	}
	key := streamKey(id)
	values := map[string]interface{}{"event": payload}
	if err := c.client.StreamAppend(ctx, key, values, c.ttl); err != nil {
		return fmt.Errorf("append stream event: %w", err)
	}
	return nil
}

// Finish appends the terminal sentinel. Readers stop following once they
// see it.
func (c *Context) Finish(ctx context.Context, id string) error {
	return c.Append(ctx, id, Event{Type: EventFinish})
}

// Replay emits the stream's buffered events and then follows live appends
// until the finish sentinel. A missing or expired stream key yields no
// events and a nil error: resuming a completed generation is not a failure.
func (c *Context) Replay(ctx context.Context, id string, emit func(Event) error) error {
	key := streamKey(id)

	entries, err := c.client.StreamRange(ctx, key)
	if err != nil {
		return fmt.Errorf("read stream %s: %w", id, err)
	}
	if len(entries) == 0 {
		exists, err := c.client.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("check stream %s: %w", id, err)
		}
		if !exists {
			return nil
		}
	}

	lastID := "0-0"
	for _, entry := range entries {
		done, err := c.emitEntry(entry, emit)
		if err != nil || done {
			return err
		}
		lastID = entry.ID
	}

	// Tail still open: follow until the sentinel or the caller goes away.
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgs, err := c.client.StreamRead(ctx, key, lastID, followBlock)
		if err != nil {
			return fmt.Errorf("follow stream %s: %w", id, err)
		}
		for _, entry := range msgs {
			done, err := c.emitEntry(entry, emit)
			if err != nil || done {
				return err
			}
			lastID = entry.ID
		}
	}
}

func (c *Context) emitEntry(entry goredis.XMessage, emit func(Event) error) (bool, error) {
	raw, ok := entry.Values["event"].(string)
	if !ok {
		c.log.Warn().Str("entry", entry.ID).Msg("stream entry missing event field")
		return false, nil
	}
	ev, err := decodeEvent(raw)
	if err != nil {
		c.log.Warn().Err(err).Str("entry", entry.ID).Msg("undecodable stream event")
		return false, nil
	}
	if ev.Type == EventFinish {
		return true, nil
	}
	return false, emit(ev)
}
