package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/database/dbtest"
	"github.com/artisanmarket/promo-engine/internal/models"
)

type failingSink struct{ calls int }

func (s *failingSink) Append(context.Context, models.AdminAuditEntry) error {
	s.calls++
	return errors.New("disk full")
}

type panickingSink struct{}

func (panickingSink) Append(context.Context, models.AdminAuditEntry) error {
	panic("boom")
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestLogAdminActionNeverFails(t *testing.T) {
	sink := &failingSink{}
	l := NewLog(sink, nil)

	assert.NotPanics(t, func() {
		l.LogAdminAction(context.Background(), models.AdminAuditEntry{AdminUser: "admin-1", Action: ActionApproveFeature})
	})
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, int64(1), l.Dropped())

	p := NewLog(panickingSink{}, nil)
	assert.NotPanics(t, func() {
		p.LogAdminAction(context.Background(), models.AdminAuditEntry{AdminUser: "admin-1"})
	})
	assert.Equal(t, int64(1), p.Dropped())
}

func TestLogSurvivesCancelledContext(t *testing.T) {
	store := NewStore(dbtest.New(t))
	l := NewLog(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Record(ctx, models.Actor{UserID: "admin-1"}, ActionCreditWallet, TargetWallet, "seller-1", nil, nil, "top-up")

	assert.Zero(t, l.Dropped())
	page, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestStoreListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore(dbtest.New(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []struct {
		admin, action, targetID string
		at                      time.Time
	}{
		{"admin-1", ActionApproveFeature, "f-1", base},
		{"admin-1", ActionRejectFeature, "f-2", base.Add(time.Hour)},
		{"admin-2", ActionApproveFeature, "f-3", base.Add(2 * time.Hour)},
		{"admin-2", ActionCreditWallet, "seller-9", base.Add(48 * time.Hour)},
	}
	for _, e := range entries {
		l := NewLog(store, fixedClock(e.at))
		l.Record(ctx, models.Actor{UserID: e.admin, IPAddress: "10.0.0.1", RequestID: "req"}, e.action, TargetFeature, e.targetID,
			map[string]string{"status": "pending_approval"}, map[string]string{"status": "active"}, "test")
		require.Zero(t, l.Dropped())
	}

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	require.Len(t, all.Entries, 4)
	assert.Equal(t, "seller-9", all.Entries[0].TargetID, "newest first")
	assert.Equal(t, "10.0.0.1", all.Entries[0].IPAddress)
	assert.NotNil(t, all.Entries[0].Changes.After)

	byAdmin, err := store.List(ctx, Filter{AdminUser: "admin-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, byAdmin.Total)

	byAction, err := store.List(ctx, Filter{Action: ActionApproveFeature, AdminUser: "admin-2"})
	require.NoError(t, err)
	require.Len(t, byAction.Entries, 1)
	assert.Equal(t, "f-3", byAction.Entries[0].TargetID)

	from, to := base.Add(30*time.Minute), base.Add(3*time.Hour)
	byRange, err := store.List(ctx, Filter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, byRange.Total)

	paged, err := store.List(ctx, Filter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, paged.Total)
	require.Len(t, paged.Entries, 1)
	assert.Equal(t, "f-1", paged.Entries[0].TargetID)
}

func TestStoreListRejectsBadFilter(t *testing.T) {
	store := NewStore(dbtest.New(t))
	from := time.Now()
	to := from.Add(-time.Hour)

	_, err := store.List(context.Background(), Filter{From: &from, To: &to})
	code, _ := apperr.CodeOf(err)
	assert.Equal(t, apperr.CodeValidation, code)

	_, err = store.List(context.Background(), Filter{Limit: MaxLimit + 1})
	code, _ = apperr.CodeOf(err)
	assert.Equal(t, apperr.CodeValidation, code)
}
