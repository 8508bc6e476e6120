package alertlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/work"
	"go.uber.org/zap"
)

const (
	RetryHandler = "retryAlertLog"

	// DefaultRetryDelay is how long a failed append waits before its first retry
	DefaultRetryDelay = 5 * time.Second
)

// Enqueuer is the part of the worker pool Retrying needs
type Enqueuer interface {
	Register(name string, handler work.Handler) error
	PerformIn(delay time.Duration, job work.JobParams)
}

// Retrying wraps a log and hands failed appends to the worker pool, which
// retries them until the job is marked dead.
type Retrying struct {
	Log
	queue Enqueuer
	delay time.Duration
	logg  *zap.SugaredLogger
}

func NewRetrying(log Log, queue Enqueuer, logg *zap.SugaredLogger) (*Retrying, error) {
	r := &Retrying{Log: log, queue: queue, delay: DefaultRetryDelay, logg: logger.OrDefault(logg)}

	err := queue.Register(RetryHandler, r.retry)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Retrying) Append(ctx context.Context, record models.AlertLogRecord) error {
	err := r.Log.Append(ctx, record)
	if err == nil {
		return nil
	}

	data, marshalErr := json.Marshal(record)
	if marshalErr != nil {
		return err
	}

	r.logg.Warnf("%vappend failed, retrying in %v: %v", prefix, r.delay, err)
	r.queue.PerformIn(r.delay, work.JobParams{
		Name:    "alert-log-" + record.IncidentID + "-" + record.AlertTimestamp.Format(time.RFC3339Nano),
		Handler: RetryHandler,
		Unique:  true,
		Args:    map[string]interface{}{"record": string(data)},
	})
	return nil
}

func (r *Retrying) retry(args map[string]interface{}) error {
	data, _ := args["record"].(string)

	record := models.AlertLogRecord{}
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return r.Log.Append(ctx, record)
}
