package cache

import (
	"context"
	"testing"
	"time"

	"compsystem/internal/model"

	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore_SaveGetDelete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	sess := &model.Session{ID: "s1", OperatorID: 7, Email: "a@b.c"}
	require.NoError(t, store.Save(ctx, sess, time.Minute))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, int64(7), got.OperatorID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &model.Session{ID: "s1"}, time.Minute))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "s1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}
