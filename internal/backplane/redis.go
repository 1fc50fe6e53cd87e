package backplane

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"study-chat/internal/config"
	"study-chat/internal/observability"
)

const channelPrefix = "chat:room:"

// Deliverer hands a frame to the subscribers of a room on this instance.
type Deliverer interface {
	Deliver(groupID string, payload []byte, exceptConnID string) int
}

type frame struct {
	GroupID string          `json:"groupId"`
	Except  string          `json:"except,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisBroadcaster publishes room frames on Redis pub/sub so every instance
// delivers them to its own subscribers.
type RedisBroadcaster struct {
	client *redis.Client
	local  Deliverer
	log    *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroadcaster(client *redis.Client, local Deliverer, log *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, local: local, log: log.Named("backplane")}
}

func ChannelFor(groupID string) string {
	return channelPrefix + groupID
}

// Broadcast publishes payload for groupID. Delivery, including on this instance,
// happens in the subscriber loop.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, groupID string, payload []byte, exceptConnID string) error {
	data, err := json.Marshal(frame{GroupID: groupID, Except: exceptConnID, Payload: payload})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, ChannelFor(groupID), data).Err()
}

// Start subscribes to every room channel and runs the delivery loop until Stop.
func (b *RedisBroadcaster) Start(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return err
	}
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.done = make(chan struct{})
	b.mu.Unlock()

	go b.listen(pubsub.Channel(), b.done)
	b.log.Info("backplane subscribed", zap.String("pattern", channelPrefix+"*"))
	return nil
}

func (b *RedisBroadcaster) listen(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range ch {
		var f frame
		if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil || f.GroupID == "" {
			observability.IncBackplaneError("decode")
			b.log.Warn("dropping malformed backplane frame", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		b.local.Deliver(f.GroupID, f.Payload, f.Except)
	}
}

// Stop closes the subscription and waits for the delivery loop to exit.
func (b *RedisBroadcaster) Stop() error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub == nil {
		return errors.New("backplane not started")
	}
	err := pubsub.Close()
	<-done
	return err
}
