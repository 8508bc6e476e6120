package alertlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLogHistory(t *testing.T) {
	ml := NewMemoryLog(nil)
	ctx := context.Background()
	now := time.Now()

	require.Nil(t, ml.Append(ctx, models.AlertLogRecord{IncidentID: "i1", UserID: "u1", AlertTimestamp: now.Add(-time.Hour)}))
	require.Nil(t, ml.Append(ctx, models.AlertLogRecord{IncidentID: "i2", UserID: "u1", AlertTimestamp: now}))
	require.Nil(t, ml.Append(ctx, models.AlertLogRecord{IncidentID: "i3", UserID: "u2", AlertTimestamp: now}))

	history, err := ml.History(ctx, "u1", 0)
	require.Nil(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "i2", history[0].IncidentID, "newest record should be first")

	history, err = ml.History(ctx, "u1", 1)
	require.Nil(t, err)
	assert.Len(t, history, 1)
}

type flakyLog struct {
	*MemoryLog
	mu    sync.Mutex
	fails int
}

func (fl *flakyLog) Append(ctx context.Context, record models.AlertLogRecord) error {
	fl.mu.Lock()
	if fl.fails > 0 {
		fl.fails--
		fl.mu.Unlock()
		return errors.New("connection refused")
	}
	fl.mu.Unlock()
	return fl.MemoryLog.Append(ctx, record)
}

func TestRetryingAppendsThroughWorkerPool(t *testing.T) {
	underlying := &flakyLog{MemoryLog: NewMemoryLog(nil), fails: 1}
	pool := work.NewWorkerAdapter("UTC", 1)

	retrying, err := NewRetrying(underlying, pool, logger.NewLogger())
	require.Nil(t, err)
	retrying.delay = 10 * time.Millisecond

	pool.Start()
	defer pool.Stop()

	err = retrying.Append(context.Background(), models.AlertLogRecord{IncidentID: "i1", UserID: "u1", AlertTimestamp: time.Now()})
	assert.Nil(t, err)

	assert.Eventually(t, func() bool {
		history, _ := retrying.History(context.Background(), "u1", 0)
		return len(history) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	jobs   []work.JobParams
}

func (d *delayRecorder) Register(string, work.Handler) error {
	return nil
}

func (d *delayRecorder) PerformIn(delay time.Duration, job work.JobParams) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delays = append(d.delays, delay)
	d.jobs = append(d.jobs, job)
}

func TestRetryingDelaysFailedAppends(t *testing.T) {
	tests := []struct {
		description string
		fails       int
		expected    int
	}{
		{"Should not schedule a retry when the append succeeds", 0, 0},
		{"Should schedule a delayed retry when the append fails", 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			queue := &delayRecorder{}
			retrying, err := NewRetrying(&flakyLog{MemoryLog: NewMemoryLog(nil), fails: tc.fails}, queue, nil)
			require.Nil(t, err)

			err = retrying.Append(context.Background(), models.AlertLogRecord{IncidentID: "i1", UserID: "u1", AlertTimestamp: time.Now()})
			assert.Nil(t, err)

			require.Len(t, queue.jobs, tc.expected)
			for i, job := range queue.jobs {
				assert.Equal(t, DefaultRetryDelay, queue.delays[i])
				assert.Equal(t, RetryHandler, job.Handler)
				assert.True(t, job.Unique)
			}
		})
	}
}
