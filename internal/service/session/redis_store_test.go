package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmhien/vietbistro/backend/internal/model/chat"
	"github.com/nmhien/vietbistro/backend/internal/service/session"
)

func newRedisStore(t *testing.T) *session.RedisStore {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return session.NewRedisStoreWithClient(client, 0)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, session.Identity{UserID: "u9"})
	require.NoError(t, err)

	msg, err := chat.NewMessage(created.ID, chat.RoleUser, "tôi muốn đặt bàn")
	require.NoError(t, err)
	_, err = store.Append(ctx, msg)
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u9", got.UserID)
	assert.Equal(t, chat.StatusActive, got.Status)

	transcript, err := store.Transcript(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, chat.RoleUser, transcript[0].Role)
	assert.Equal(t, "tôi muốn đặt bàn", transcript[0].Content)
}

func TestRedisStoreTerminalRules(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, session.Identity{})
	require.NoError(t, err)

	_, err = store.End(ctx, created.ID)
	require.NoError(t, err)

	msg, err := chat.NewMessage(created.ID, chat.RoleUser, "hello?")
	require.NoError(t, err)
	_, err = store.Append(ctx, msg)
	assert.ErrorIs(t, err, session.ErrSessionClosed)

	_, err = store.End(ctx, created.ID)
	assert.ErrorIs(t, err, session.ErrSessionClosed)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestRedisStoreUpdateAndSweep(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, session.Identity{})
	require.NoError(t, err)

	created.Intent = chat.IntentOrder
	created.CollectedData.MergeOrder(chat.OrderFields{
		Items: []chat.OrderItem{{ItemName: "Phở bò tái", Quantity: 2}},
	})
	require.NoError(t, store.Update(ctx, created))

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.IntentOrder, got.Intent)
	require.NotNil(t, got.CollectedData.Order)
	assert.Equal(t, 2, got.CollectedData.Order.Items[0].Quantity)

	// Everything is idle relative to a future cutoff.
	swept, err := store.AbandonInactive(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	got, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusAbandoned, got.Status)
}
