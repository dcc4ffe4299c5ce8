// Package redisfeed carries table change notifications between teamsync
// processes over Redis pub/sub.
//
// Each write is published on "<prefix><table>". Every process pattern-subscribes
// to "<prefix>*" and relays what it receives into a local changefeed.Hub, so a
// teammate's write reaches this process's roster subscription the same way a
// local write does. Our own publishes come back through the same relay.
package redisfeed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/teamsync/internal/changefeed"
	"github.com/sakif/teamsync/internal/repository"
)

var (
	_ repository.Changefeed = (*Feed)(nil)
	_ repository.Notifier   = (*Feed)(nil)
)

// DefaultPrefix namespaces teamsync channels on a shared Redis.
const DefaultPrefix = "teamsync:table:"

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Feed is a Redis-backed changefeed.
type Feed struct {
	client *redis.Client
	prefix string
	local  *changefeed.Hub
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects to Redis, verifies the connection and starts the relay.
func New(cfg Config, logger *slog.Logger) (*Feed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redisfeed: connecting to %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	relayCtx, relayCancel := context.WithCancel(context.Background())
	f := &Feed{
		client: client,
		prefix: prefix,
		local:  changefeed.NewHub(),
		logger: logger,
		cancel: relayCancel,
	}

	pubsub := client.PSubscribe(relayCtx, prefix+"*")
	// Receive blocks until Redis confirms the subscription, so no publish made
	// after New returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		relayCancel()
		pubsub.Close()
		client.Close()
		return nil, fmt.Errorf("redisfeed: subscribing to %s*: %w", prefix, err)
	}

	f.wg.Add(1)
	go f.relay(relayCtx, pubsub)

	return f, nil
}

// SubscribeTable registers onChange for notifications about table from any process.
func (f *Feed) SubscribeTable(table string, onChange func()) func() {
	return f.local.SubscribeTable(table, onChange)
}

// Notify publishes a change of table. If Redis is unreachable, local
// subscribers are still notified directly.
func (f *Feed) Notify(table string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := f.client.Publish(ctx, f.prefix+table, table).Err(); err != nil {
		f.logger.Warn("redisfeed: publish failed, notifying locally",
			slog.String("table", table),
			slog.String("error", err.Error()),
		)
		f.local.Notify(table)
	}
}

// Close stops the relay and closes the Redis client.
func (f *Feed) Close() error {
	f.cancel()
	f.wg.Wait()
	return f.client.Close()
}

func (f *Feed) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer f.wg.Done()
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			table, ok := tableFromChannel(f.prefix, msg.Channel)
			if !ok {
				continue
			}
			f.local.Notify(table)
		}
	}
}

// tableFromChannel extracts the table name from a "<prefix><table>" channel.
func tableFromChannel(prefix, channel string) (string, bool) {
	table, ok := strings.CutPrefix(channel, prefix)
	if !ok || table == "" {
		return "", false
	}
	return table, true
}
