package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_OpensBreakerWhenRedisIsDown(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	b := NewWithClient(client, zerolog.Nop())
	defer b.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := b.Publish(ctx, "clinic.queue", map[string]string{"type": "queue.updated"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	err := b.Publish(ctx, "clinic.queue", map[string]string{"type": "queue.updated"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestPublish_RejectsUnmarshalableMessage(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	b := NewWithClient(client, zerolog.Nop())
	defer b.Close()

	err := b.Publish(context.Background(), "clinic.queue", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal message")
}
