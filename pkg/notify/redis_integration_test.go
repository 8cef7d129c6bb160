//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/mobby57/memoLib-sub019/pkg/notify"
)

func TestRedisPublish(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(ctx, "memolib:transitions")
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := notify.NewRedis(client, "memolib:transitions", slog.Default())
	want := notify.Transition{
		TenantID:   "acme",
		UnitID:     "u1",
		Seq:        1,
		ToStatus:   "RECEIVED",
		Actor:      "system",
		OccurredAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, publisher.Notify(ctx, want))

	select {
	case msg := <-sub.Channel():
		var got notify.Transition
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, want.UnitID, got.UnitID)
		assert.Equal(t, want.ToStatus, got.ToStatus)
		assert.True(t, want.OccurredAt.Equal(got.OccurredAt))
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
