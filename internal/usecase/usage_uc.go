package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riverzaw/wasmer-cloud-solution/internal/domain"
	"github.com/riverzaw/wasmer-cloud-solution/internal/repository"
)

// UsageUsecase aggregates email log entries into time buckets for one
// app or all apps owned by a user.
type UsageUsecase struct {
	apps repository.AppRepository
	logs repository.EmailLogRepository
}

func NewUsageUsecase(apps repository.AppRepository, logs repository.EmailLogRepository) *UsageUsecase {
	return &UsageUsecase{apps: apps, logs: logs}
}

// Usage buckets entries in [from, to) into half-open intervals of the
// requested granularity anchored at `from`. Every bucket in the window
// is emitted, zeros included. Entries bucket by their send time
// (enqueue time if they never went out); counts follow the entry's
// current status: sent covers SENT, DELIVERED and OPENED, read covers
// OPENED, failed covers FAILED, total covers everything.
func (uc *UsageUsecase) Usage(ctx context.Context, scope domain.UsageScope, groupBy domain.Granularity, from, to time.Time) ([]domain.UsageBucket, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("usage window end %s is not after start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	appIDs, err := uc.resolveScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	starts := bucketStarts(groupBy, from, to)
	buckets := make([]domain.UsageBucket, len(starts))
	for i, ts := range starts {
		buckets[i] = domain.UsageBucket{Timestamp: ts}
	}

	if len(appIDs) == 0 {
		return buckets, nil
	}

	entries, err := uc.logs.ListInWindowByApps(ctx, appIDs, from, to)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		at := entry.BucketTime()
		// index of the last bucket starting at or before the entry
		i := sort.Search(len(starts), func(i int) bool { return starts[i].After(at) }) - 1
		if i < 0 || i >= len(buckets) {
			continue
		}
		b := &buckets[i]
		b.Total++
		switch {
		case entry.Status.Delivered():
			b.Sent++
			if entry.Status == domain.StatusOpened {
				b.Read++
			}
		case entry.Status == domain.StatusFailed:
			b.Failed++
		}
	}

	return buckets, nil
}

func (uc *UsageUsecase) resolveScope(ctx context.Context, scope domain.UsageScope) ([]string, error) {
	if scope.AppID != "" {
		app, err := uc.apps.GetByID(ctx, scope.AppID)
		if err != nil {
			return nil, err
		}
		return []string{app.ID}, nil
	}

	apps, err := uc.apps.ListByOwner(ctx, scope.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// bucketStarts returns the start of every bucket covering [from, to).
// DAY and WEEK are fixed-width; MONTH advances calendar months from the
// anchor, so bucket widths follow month lengths.
func bucketStarts(groupBy domain.Granularity, from, to time.Time) []time.Time {
	var starts []time.Time
	switch groupBy {
	case domain.GroupByMonth:
		for i := 0; ; i++ {
			ts := from.AddDate(0, i, 0)
			if !ts.Before(to) {
				break
			}
			starts = append(starts, ts)
		}
	case domain.GroupByWeek:
		for ts := from; ts.Before(to); ts = ts.Add(7 * 24 * time.Hour) {
			starts = append(starts, ts)
		}
	default: // DAY
		for ts := from; ts.Before(to); ts = ts.Add(24 * time.Hour) {
			starts = append(starts, ts)
		}
	}
	return starts
}
