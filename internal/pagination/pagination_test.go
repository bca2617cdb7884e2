package pagination

import (
	"context"
	"errors"
	"fmt"
	"github.com/maxaizer/jobs-tracker/internal/domain/models"
	"github.com/maxaizer/jobs-tracker/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func records(from, count int) []models.JobRecord {
	result := make([]models.JobRecord, 0, count)
	for i := from; i < from+count; i++ {
		result = append(result, models.JobRecord{ID: fmt.Sprintf("%d", i)})
	}
	return result
}

func newTestController(limits Limits, fetch FetchFunc) *Controller {
	c := NewController(limits, fetch, nil)
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c
}

func Test_Run_TotalReached_ShouldStop(t *testing.T) {
	var offsets []int
	c := newTestController(Limits{PageSize: 10}, func(ctx context.Context, offset, limit int) (Page, error) {
		offsets = append(offsets, offset)
		return Page{Records: records(offset, limit), Total: 25}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopTotalReached, result.Reason)
	assert.Equal(t, []int{0, 10, 20}, offsets)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 25, result.Total)
	assert.True(t, result.Complete())
	assert.True(t, result.Exhaustive())
}

func Test_Run_ShortPage_ShouldStop(t *testing.T) {
	c := newTestController(Limits{PageSize: 10}, func(ctx context.Context, offset, limit int) (Page, error) {
		if offset == 10 {
			return Page{Records: records(offset, 4)}, nil
		}
		return Page{Records: records(offset, limit)}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopShortPage, result.Reason)
	assert.Len(t, result.Records, 14)
	assert.Equal(t, 14, result.Seen.Cardinality())
}

func Test_Run_EmptyFirstPage_ShouldStopWithoutRecords(t *testing.T) {
	c := newTestController(Limits{PageSize: 10}, func(ctx context.Context, offset, limit int) (Page, error) {
		return Page{}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopEmptyPage, result.Reason)
	assert.Equal(t, 1, result.Pages)
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.Seen.Cardinality())
}

func Test_Run_MaxPages_ShouldStop(t *testing.T) {
	calls := 0
	c := newTestController(Limits{PageSize: 10, MaxPages: 2}, func(ctx context.Context, offset, limit int) (Page, error) {
		calls++
		return Page{Records: records(offset, limit)}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopMaxPages, result.Reason)
	assert.Equal(t, 2, calls)
	assert.Len(t, result.Records, 20)
	assert.True(t, result.Complete())
	assert.False(t, result.Exhaustive())
}

func Test_Run_MaxJobs_ShouldStopOnceReached(t *testing.T) {
	c := newTestController(Limits{PageSize: 10, MaxJobs: 15}, func(ctx context.Context, offset, limit int) (Page, error) {
		return Page{Records: records(offset, limit)}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopMaxJobs, result.Reason)
	assert.Equal(t, 2, result.Pages)
}

func Test_Run_MaxRuntime_ShouldStop(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := newTestController(Limits{PageSize: 10, MaxRuntime: time.Minute}, func(ctx context.Context, offset, limit int) (Page, error) {
		now = now.Add(40 * time.Second)
		return Page{Records: records(offset, limit)}, nil
	})
	c.now = func() time.Time { return now }

	result := c.Run(context.Background())

	assert.Equal(t, StopMaxRuntime, result.Reason)
	assert.Equal(t, 2, result.Pages)
}

func Test_Run_SamePageRepeated_ShouldStopOnStagnation(t *testing.T) {
	c := newTestController(Limits{PageSize: 10}, func(ctx context.Context, offset, limit int) (Page, error) {
		return Page{Records: records(0, limit)}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopStagnation, result.Reason)
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, 10, result.Seen.Cardinality())
	assert.False(t, result.Exhaustive())
}

func Test_Run_StagnationBelowReportedTotal_ShouldNotBeExhaustive(t *testing.T) {
	c := newTestController(Limits{PageSize: 2}, func(ctx context.Context, offset, limit int) (Page, error) {
		return Page{Records: records(1, 2), Total: 1000}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopStagnation, result.Reason)
	assert.Equal(t, 2, result.Seen.Cardinality())
	assert.True(t, result.Complete())
	assert.False(t, result.Exhaustive())
}

func Test_Result_StagnationAfterEveryHit_ShouldBeExhaustive(t *testing.T) {
	result := Result{Reason: StopStagnation, Total: 2, Seen: reconcile.NewIDSet("1", "2")}

	assert.True(t, result.Exhaustive())
}

func Test_Run_FetchError_ShouldKeepEarlierPages(t *testing.T) {
	boom := errors.New("boom")
	c := newTestController(Limits{PageSize: 10}, func(ctx context.Context, offset, limit int) (Page, error) {
		if offset == 20 {
			return Page{}, boom
		}
		return Page{Records: records(offset, limit)}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopFetchError, result.Reason)
	assert.ErrorIs(t, result.Err, boom)
	assert.Len(t, result.Records, 20)
	assert.False(t, result.Complete())
	assert.False(t, result.Exhaustive())
}

func Test_Run_CancelledContext_ShouldStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestController(Limits{PageSize: 10}, func(ctx context.Context, offset, limit int) (Page, error) {
		if offset == 10 {
			cancel()
		}
		return Page{Records: records(offset, limit)}, nil
	})

	result := c.Run(ctx)

	assert.Equal(t, StopCancelled, result.Reason)
	assert.Len(t, result.Records, 20)
	assert.False(t, result.Complete())
	assert.False(t, result.Exhaustive())
}

func Test_Run_ExplicitIDs_ShouldCountTowardsSeen(t *testing.T) {
	c := newTestController(Limits{PageSize: 3}, func(ctx context.Context, offset, limit int) (Page, error) {
		return Page{Records: records(1, 1), IDs: []string{"1", "2"}}, nil
	})

	result := c.Run(context.Background())

	assert.Equal(t, StopShortPage, result.Reason)
	assert.Len(t, result.Records, 1)
	assert.True(t, result.Seen.Contains("1", "2"))
}

func Test_Run_StartOffset_ShouldBeFirstOffset(t *testing.T) {
	var first = -1
	c := newTestController(Limits{PageSize: 10, StartOffset: 30}, func(ctx context.Context, offset, limit int) (Page, error) {
		if first < 0 {
			first = offset
		}
		return Page{}, nil
	})

	c.Run(context.Background())

	assert.Equal(t, 30, first)
}

func Test_Delay_ShouldStayWithinJitter(t *testing.T) {
	c := NewController(Limits{MinInterval: time.Second, Jitter: 500 * time.Millisecond}, nil, nil)

	for i := 0; i < 20; i++ {
		d := c.delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 1500*time.Millisecond)
	}
}
