package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/google/uuid"
)

const (
	ENQUEUED_JOB    = "enqueued"
	IN_PROGRESS_JOB = "in-progress"
	SUCCESSFUL_JOB  = "successful"
	DEAD_JOB        = "dead"
	MAX_FAILS       = 4
)

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")
	ErrDuplicateJob     = errors.New("job with the given name already exists in queue")
	ErrUnknownHandler   = errors.New("no handler mapped to the provided name")

	logg = logger.NewLogger()
)

type JobParams struct {
	Name    string
	Handler string
	Unique  bool
	Args    map[string]interface{}
}

type Handler func(map[string]interface{}) error

type job struct {
	JobParams
	fails     int
	lastError string
}

type worker struct {
	id       string
	pool     *WorkerPool
	stopChan chan struct{}
}

func newWorker(pool *WorkerPool) *worker {
	return &worker{
		id:       uuid.NewString()[:8],
		pool:     pool,
		stopChan: make(chan struct{}),
	}
}

func (w *worker) start() {
	go w.loop()
}

func (w *worker) stop() {
	w.stopChan <- struct{}{}
}

func (w *worker) loop() {
	w.logInfof("starting")
	for {
		select {
		case <-w.stopChan:
			w.logInfof("stopping")
			return
		case currentJob := <-w.pool.queue:
			w.processJob(currentJob)
		}
	}
}

func (w *worker) processJob(currentJob *job) {
	w.pool.setStatus(currentJob, IN_PROGRESS_JOB)
	w.logInfof("processing job %v, fails=%v", currentJob.Name, currentJob.fails)

	err := w.run(currentJob)
	if err != nil {
		w.logError(err)
		w.determineFailedJobFate(currentJob, err)
		return
	}

	w.pool.setStatus(currentJob, SUCCESSFUL_JOB)
	w.logInfof("job %v completed with status=%v", currentJob.Name, SUCCESSFUL_JOB)
}

func (w *worker) run(currentJob *job) (err error) {
	handler, ok := w.pool.handler(currentJob.Handler)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownHandler, currentJob.Handler)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %v panicked: %v", currentJob.Name, r)
		}
	}()

	return handler(currentJob.Args)
}

// determineFailedJobFate marks jobs with fails >= MAX_FAILS as dead, others are
// requeued after a backoff
func (w *worker) determineFailedJobFate(currentJob *job, runError error) {
	currentJob.fails++
	currentJob.lastError = runError.Error()

	if currentJob.fails >= MAX_FAILS {
		w.pool.setStatus(currentJob, DEAD_JOB)
		w.logInfof("job %v completed with status=%v, last error: %v", currentJob.Name, DEAD_JOB, currentJob.lastError)
		return
	}

	w.pool.setStatus(currentJob, ENQUEUED_JOB)
	w.pool.requeueIn(currentJob, w.pool.backoff(currentJob.fails))
}

func (w *worker) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow(fmt.Sprintf("[worker %v] ", w.id))
	logg.Infof(prefix+template, args...)
}

func (w *worker) logError(args ...interface{}) {
	prefix := colors.Red(fmt.Sprintf("[worker %v] ", w.id))
	logg.Error(append([]interface{}{prefix}, args...)...)
}

func defaultBackoff(fails int) time.Duration {
	return time.Duration(fails*fails) * time.Second
}
