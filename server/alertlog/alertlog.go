package alertlog

import (
	"context"
	"sort"
	"sync"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"go.uber.org/zap"
)

const DefaultHistoryLimit = 50

var prefix = colors.Prefix("alert log")

// Log is an append-only record of every dispatched alert
type Log interface {
	Append(ctx context.Context, record models.AlertLogRecord) error
	History(ctx context.Context, userID string, limit int) ([]models.AlertLogRecord, error)
}

// MemoryLog keeps records in memory and writes each append to the logger
type MemoryLog struct {
	mu      sync.Mutex
	records []models.AlertLogRecord
	logg    *zap.SugaredLogger
}

func NewMemoryLog(logg *zap.SugaredLogger) *MemoryLog {
	return &MemoryLog{logg: logger.OrDefault(logg)}
}

func (ml *MemoryLog) Append(ctx context.Context, record models.AlertLogRecord) error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	record.ID = int64(len(ml.records) + 1)
	ml.records = append(ml.records, record)

	ml.logg.Infow(prefix+"alert dispatched",
		"incident_id", record.IncidentID,
		"user_id", record.UserID,
		"contacts_notified", record.ContactsNotified,
		"successful_alerts", record.SuccessfulAlerts,
		"status", record.Status,
	)
	return nil
}

// History returns the user's records, newest first
func (ml *MemoryLog) History(ctx context.Context, userID string, limit int) ([]models.AlertLogRecord, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	history := []models.AlertLogRecord{}
	for _, record := range ml.records {
		if record.UserID == userID {
			history = append(history, record)
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].AlertTimestamp.After(history[j].AlertTimestamp)
	})

	return truncate(history, limit), nil
}

func truncate(records []models.AlertLogRecord, limit int) []models.AlertLogRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(records) > limit {
		return records[:limit]
	}
	return records
}
