package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/database/dbtest"
)

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	n := New(dbtest.New(t), func() time.Time { return clock })

	n.Send(ctx, "seller-1", "Your promotion was approved", "/promotions/f-1")
	clock = clock.Add(time.Minute)
	n.Send(ctx, "seller-1", "Your promotion expired", "")
	n.Send(ctx, "seller-2", "Hello", "")

	list, err := n.List(ctx, "seller-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Your promotion expired", list[0].Message, "newest first")
	assert.Nil(t, list[0].Link)
	require.NotNil(t, list[1].Link)
	assert.Equal(t, "/promotions/f-1", *list[1].Link)

	require.NoError(t, n.MarkRead(ctx, "seller-1", list[0].ID))
	require.NoError(t, n.MarkRead(ctx, "seller-1", list[0].ID), "marking twice is fine")

	list, err = n.List(ctx, "seller-1")
	require.NoError(t, err)
	assert.False(t, list[0].IsRead, "unread first")
	assert.True(t, list[1].IsRead)

	err = n.MarkRead(ctx, "seller-2", list[0].ID)
	code, _ := apperr.CodeOf(err)
	assert.Equal(t, apperr.CodeNotFound, code)
}
