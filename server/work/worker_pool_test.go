package work

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerform(t *testing.T) {
	workerPool := NewWorkerAdapter("UTC", MAX_CONCURRENCY)
	done := make(chan string, 1)

	err := workerPool.Register("write_name", func(args map[string]interface{}) error {
		done <- args["name"].(string)
		return nil
	})
	assert.Nil(t, err)
	assert.ErrorIs(t, workerPool.Register("write_name", nil), ErrDuplicateHandler)

	workerPool.Start()
	defer workerPool.Stop()

	err = workerPool.Perform(JobParams{Name: "suits", Handler: "write_name", Args: map[string]interface{}{"name": "donna"}})
	assert.Nil(t, err)

	select {
	case name := <-done:
		assert.Equal(t, "donna", name)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	assert.Eventually(t, func() bool { return workerPool.Status("suits") == SUCCESSFUL_JOB },
		time.Second, 10*time.Millisecond)
}

func TestEnqueueRejectsInvalidAndDuplicateJobs(t *testing.T) {
	pool := NewWorkerPool(1)

	assert.NotNil(t, pool.Enqueue(JobParams{Name: " "}))

	job := JobParams{Name: "backup", Handler: "backup", Unique: true}
	assert.Nil(t, pool.Enqueue(job))
	assert.ErrorIs(t, pool.Enqueue(job), ErrDuplicateJob)
	assert.Equal(t, ENQUEUED_JOB, pool.Status("backup"))
}

func TestFailingJobIsRetriedThenDead(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.backoff = func(int) time.Duration { return time.Millisecond }

	var runs int32
	assert.Nil(t, pool.RegisterHandler("flaky", func(map[string]interface{}) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("boom")
	}))

	pool.Start()
	defer pool.Stop()

	assert.Nil(t, pool.Enqueue(JobParams{Name: "flaky-job", Handler: "flaky"}))

	assert.Eventually(t, func() bool { return pool.Status("flaky-job") == DEAD_JOB },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(MAX_FAILS), atomic.LoadInt32(&runs))
}

func TestPerformIn(t *testing.T) {
	adapter := NewWorkerAdapter("UTC", MAX_CONCURRENCY)
	assert.Nil(t, adapter.Register("noop", func(map[string]interface{}) error { return nil }))

	adapter.Start()
	defer adapter.Stop()

	adapter.PerformIn(50*time.Millisecond, JobParams{Name: "later", Handler: "noop"})
	assert.Equal(t, "", adapter.Status("later"), "job should not be enqueued before its delay")

	assert.Eventually(t, func() bool { return adapter.Status("later") == SUCCESSFUL_JOB },
		2*time.Second, 10*time.Millisecond)
}

func TestRemovePeriodicJob(t *testing.T) {
	adapter := NewWorkerAdapter("UTC", MAX_CONCURRENCY)

	job := JobParams{Name: "nightly", Handler: "noop"}
	assert.Nil(t, adapter.PeriodicallyPerform("0 0 * * *", job))

	assert.Nil(t, adapter.RemovePeriodicJob("nightly"))
	assert.NotNil(t, adapter.RemovePeriodicJob("nightly"), "job should already be unscheduled")
}
