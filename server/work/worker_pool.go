package work

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const queueSize = 256

// WorkerPool is an in-memory job queue processed by a fixed set of workers.
// Jobs are lost on restart.
type WorkerPool struct {
	mu       sync.Mutex
	handlers map[string]Handler
	statuses map[string]string
	queue    chan *job
	workers  []*worker
	started  bool
	backoff  func(fails int) time.Duration
}

func NewWorkerPool(concurrency int) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}

	wp := &WorkerPool{
		handlers: make(map[string]Handler),
		statuses: make(map[string]string),
		queue:    make(chan *job, queueSize),
		backoff:  defaultBackoff,
	}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker(wp))
	}

	return wp
}

// RegisterHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) RegisterHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}
	wp.handlers[name] = handler

	return nil
}

// Enqueue adds a job to the queue. Unique jobs are rejected with ErrDuplicateJob
// while a job with the same name is enqueued or in-progress.
func (wp *WorkerPool) Enqueue(params JobParams) error {
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Handler) == "" {
		return fmt.Errorf("both a name & handler is required for a job")
	}

	wp.mu.Lock()
	status := wp.statuses[params.Name]
	if params.Unique && (status == ENQUEUED_JOB || status == IN_PROGRESS_JOB) {
		wp.mu.Unlock()
		return ErrDuplicateJob
	}
	wp.statuses[params.Name] = ENQUEUED_JOB
	wp.mu.Unlock()

	select {
	case wp.queue <- &job{JobParams: params}:
		return nil
	default:
		wp.setStatus(&job{JobParams: params}, DEAD_JOB)
		return fmt.Errorf("job queue is full, dropping %v", params.Name)
	}
}

// Status returns the last known status of the job with name
func (wp *WorkerPool) Status(name string) string {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.statuses[name]
}

// Start starts all workers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}
}

// Stop stops all workers in pool i.e jobs will stop being processed
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return
	}
	wp.started = false
	wp.mu.Unlock()

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}
	wg.Wait()
}

func (wp *WorkerPool) handler(name string) (Handler, bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	handler, ok := wp.handlers[name]
	return handler, ok
}

func (wp *WorkerPool) setStatus(j *job, status string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.statuses[j.Name] = status
}

func (wp *WorkerPool) requeueIn(j *job, delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case wp.queue <- j:
		default:
			wp.setStatus(j, DEAD_JOB)
			logg.Errorf("job queue is full, dropping retry of %v", j.Name)
		}
	})
}
