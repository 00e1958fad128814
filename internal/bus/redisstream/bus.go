// Package redisstream publishes callbacks to a Redis stream so processes other
// than the one holding the CM connection can follow them.
package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tuokri/SteamKit/internal/callback"
	"github.com/tuokri/SteamKit/pkg/logger"
)

type Bus struct {
	cli    *redis.Client
	stream string
	group  string
	queue  chan *Message
	log    *zap.Logger
}

// Message is the stream entry for one callback. Data is the callback's JSON
// encoding.
type Message struct {
	Name string          `json:"name"`
	When time.Time       `json:"when"`
	Data json.RawMessage `json:"data"`
}

func New(addr string, db int, stream, group string) *Bus {
	cli := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	return &Bus{
		cli:    cli,
		stream: stream,
		group:  group,
		queue:  make(chan *Message, 1024),
		log:    logger.Named("redisstream"),
	}
}

// Encode converts a callback into a stream message.
func Encode(cb callback.Callback) (*Message, error) {
	data, err := json.Marshal(cb)
	if err != nil {
		return nil, err
	}
	return &Message{Name: string(cb.Name()), When: cb.Time(), Data: data}, nil
}

func (b *Bus) Ping(ctx context.Context) error { return b.cli.Ping(ctx).Err() }

func (b *Bus) Close() error { return b.cli.Close() }

func (b *Bus) EnsureGroup(ctx context.Context) error {
	err := b.cli.XGroupCreateMkStream(ctx, b.stream, b.group, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return err
	}
	return nil
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (b *Bus) Publish(ctx context.Context, m *Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.cli.XAdd(ctx, &redis.XAddArgs{Stream: b.stream, Values: map[string]any{"data": payload}}).Err()
}

// Post implements callback.Sink. The callback is encoded immediately and
// published by Run; when the queue is full it is dropped.
func (b *Bus) Post(cb callback.Callback) {
	m, err := Encode(cb)
	if err != nil {
		b.log.Warn("encode_callback_failed", zap.String("name", string(cb.Name())), zap.Error(err))
		return
	}
	select {
	case b.queue <- m:
	default:
		b.log.Warn("publish_queue_full", zap.String("name", m.Name))
	}
}

// Run publishes queued callbacks until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-b.queue:
			if err := b.Publish(ctx, m); err != nil && ctx.Err() == nil {
				b.log.Warn("publish_failed", zap.String("name", m.Name), zap.Error(err))
			}
		}
	}
}

type Handler func(ctx context.Context, m *Message) error

// Consume blocks and delivers messages to handler until ctx is done.
func (b *Bus) Consume(ctx context.Context, consumer string, handler Handler) error {
	for {
		res, err := b.cli.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: consumer,
			Streams:  []string{b.stream, ">"},
			Count:    100,
			Block:    5 * time.Second,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// transient errors: continue
			continue
		}
		for _, str := range res {
			for _, xmsg := range str.Messages {
				raw, _ := xmsg.Values["data"].(string)
				var m Message
				if err := json.Unmarshal([]byte(raw), &m); err == nil {
					_ = handler(ctx, &m)
				}
				_ = b.cli.XAck(ctx, b.stream, b.group, xmsg.ID).Err()
			}
		}
	}
}
