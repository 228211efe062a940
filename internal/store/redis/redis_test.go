package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shared-calendar/internal/store"
)

func TestStore_KeyLayout(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	s := New(client, "")
	assert.Equal(t, "calendar:users", s.Key(store.Users))

	custom := New(client, "team")
	assert.Equal(t, "team:elements", custom.Key(store.Elements))
}

func TestStore_InsertRejectsRecordWithoutID(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	err := New(client, "").Insert(context.Background(), store.Users, store.Record{"username": "x"})
	require.ErrorIs(t, err, store.ErrInvalidRecord)
}

func TestOpen_RejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "not-a-url", "")
	require.Error(t, err)
}
