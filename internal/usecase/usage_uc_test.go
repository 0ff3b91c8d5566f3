package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
)

func seedUsageLog(t *testing.T, logs *fakeLogRepo, id, appID string, status domain.EmailStatus, at time.Time) {
	t.Helper()
	entry := &domain.EmailLog{
		ID:         id,
		AppID:      appID,
		UserID:     "u_1",
		Provider:   domain.ProviderMailerSend,
		ToEmail:    "to@example.com",
		MessageTag: "tag_" + id,
		Status:     status,
		EnqueuedAt: at,
	}
	if status != domain.StatusQueued && status != domain.StatusFailed {
		sent := at
		entry.TimeSent = &sent
	}
	require.NoError(t, logs.Create(context.Background(), entry))
}

func TestUsageDailyBuckets(t *testing.T) {
	apps := newFakeAppRepo(&domain.App{ID: "app_1", OwnerID: "u_1", Active: true})
	logs := newFakeLogRepo()
	uc := NewUsageUsecase(apps, logs)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day1 := from.Add(10 * time.Hour)
	day2 := from.Add(24*time.Hour + 3*time.Hour)

	seedUsageLog(t, logs, "e1", "app_1", domain.StatusSent, day1)
	seedUsageLog(t, logs, "e2", "app_1", domain.StatusFailed, day1.Add(time.Hour))
	seedUsageLog(t, logs, "e3", "app_1", domain.StatusOpened, day2)

	buckets, err := uc.Usage(context.Background(), domain.UsageScope{AppID: "app_1"}, domain.GroupByDay, from, from.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, from, buckets[0].Timestamp)
	assert.Equal(t, 2, buckets[0].Total)
	assert.Equal(t, 1, buckets[0].Sent)
	assert.Equal(t, 1, buckets[0].Failed)
	assert.Equal(t, 0, buckets[0].Read)

	assert.Equal(t, from.Add(24*time.Hour), buckets[1].Timestamp)
	assert.Equal(t, 1, buckets[1].Total)
	assert.Equal(t, 1, buckets[1].Sent)
	assert.Equal(t, 1, buckets[1].Read)
	assert.Equal(t, 0, buckets[1].Failed)
}

func TestUsageEmittedBucketsIncludeZeros(t *testing.T) {
	apps := newFakeAppRepo(&domain.App{ID: "app_1", OwnerID: "u_1", Active: true})
	logs := newFakeLogRepo()
	uc := NewUsageUsecase(apps, logs)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedUsageLog(t, logs, "e1", "app_1", domain.StatusSent, from.Add(time.Hour))

	buckets, err := uc.Usage(context.Background(), domain.UsageScope{AppID: "app_1"}, domain.GroupByDay, from, from.Add(4*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	assert.Equal(t, 1, buckets[0].Total)
	for i := 1; i < 4; i++ {
		assert.Zero(t, buckets[i].Total, "bucket %d", i)
	}
}

func TestUsageMonthBucketsFollowCalendar(t *testing.T) {
	apps := newFakeAppRepo(&domain.App{ID: "app_1", OwnerID: "u_1", Active: true})
	logs := newFakeLogRepo()
	uc := NewUsageUsecase(apps, logs)

	from := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	// Feb 20 falls in the second bucket (Jan 15 .. Feb 15 .. Mar 15).
	seedUsageLog(t, logs, "e1", "app_1", domain.StatusDelivered, time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC))

	buckets, err := uc.Usage(context.Background(), domain.UsageScope{AppID: "app_1"}, domain.GroupByMonth, from, to)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), buckets[1].Timestamp)
	assert.Equal(t, 1, buckets[1].Total)
	assert.Equal(t, 1, buckets[1].Sent)
	assert.Zero(t, buckets[0].Total)
	assert.Zero(t, buckets[2].Total)
}

func TestUsageUserScopeSpansApps(t *testing.T) {
	apps := newFakeAppRepo(
		&domain.App{ID: "app_1", OwnerID: "u_1", Active: true},
		&domain.App{ID: "app_2", OwnerID: "u_1", Active: true},
		&domain.App{ID: "app_3", OwnerID: "u_2", Active: true},
	)
	logs := newFakeLogRepo()
	uc := NewUsageUsecase(apps, logs)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedUsageLog(t, logs, "e1", "app_1", domain.StatusSent, from.Add(time.Hour))
	seedUsageLog(t, logs, "e2", "app_2", domain.StatusSent, from.Add(2*time.Hour))
	seedUsageLog(t, logs, "e3", "app_3", domain.StatusSent, from.Add(3*time.Hour))

	buckets, err := uc.Usage(context.Background(), domain.UsageScope{UserID: "u_1"}, domain.GroupByDay, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 2, buckets[0].Total)
}

func TestUsageQueuedEntryBucketsByEnqueueTime(t *testing.T) {
	apps := newFakeAppRepo(&domain.App{ID: "app_1", OwnerID: "u_1", Active: true})
	logs := newFakeLogRepo()
	uc := NewUsageUsecase(apps, logs)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedUsageLog(t, logs, "e1", "app_1", domain.StatusQueued, from.Add(time.Hour))

	buckets, err := uc.Usage(context.Background(), domain.UsageScope{AppID: "app_1"}, domain.GroupByDay, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, 1, buckets[0].Total)
	assert.Zero(t, buckets[0].Sent)
	assert.Zero(t, buckets[0].Failed)
}

func TestUsageRejectsEmptyWindow(t *testing.T) {
	uc := NewUsageUsecase(newFakeAppRepo(), newFakeLogRepo())

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := uc.Usage(context.Background(), domain.UsageScope{UserID: "u_1"}, domain.GroupByDay, at, at)
	assert.Error(t, err)
}

func TestUsageUnknownAppScope(t *testing.T) {
	uc := NewUsageUsecase(newFakeAppRepo(), newFakeLogRepo())

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := uc.Usage(context.Background(), domain.UsageScope{AppID: "app_missing"}, domain.GroupByDay, from, from.Add(24*time.Hour))
	assert.ErrorIs(t, err, domain.ErrAppNotFound)
}
