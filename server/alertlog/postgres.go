package alertlog

import (
	"context"

	"github.com/Daskott/rightguard/server/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS alert_activity (
	id                BIGSERIAL PRIMARY KEY,
	incident_id       TEXT NOT NULL,
	user_id           TEXT NOT NULL,
	alert_timestamp   TIMESTAMPTZ NOT NULL,
	contacts_notified INTEGER NOT NULL,
	successful_alerts INTEGER NOT NULL,
	status            TEXT NOT NULL,
	alert_details     JSONB
);
CREATE INDEX IF NOT EXISTS idx_alert_activity_user_id ON alert_activity (user_id, alert_timestamp DESC);
`

// PostgresLog appends records to the alert_activity table
type PostgresLog struct {
	pool *pgxpool.Pool
}

func NewPostgresLog(ctx context.Context, dsn string) (*PostgresLog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "unable to reach alert log database")
	}

	return &PostgresLog{pool: pool}, nil
}

// Migrate creates the alert_activity table if it does not exist
func (pl *PostgresLog) Migrate(ctx context.Context) error {
	_, err := pl.pool.Exec(ctx, createTableSQL)
	return errors.Wrap(err, "migrate alert_activity")
}

func (pl *PostgresLog) Close() {
	pl.pool.Close()
}

func (pl *PostgresLog) Append(ctx context.Context, record models.AlertLogRecord) error {
	query := `
		INSERT INTO alert_activity (incident_id, user_id, alert_timestamp, contacts_notified, successful_alerts, status, alert_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var details interface{}
	if len(record.Details) > 0 {
		details = string(record.Details)
	}

	_, err := pl.pool.Exec(ctx, query,
		record.IncidentID,
		record.UserID,
		record.AlertTimestamp,
		record.ContactsNotified,
		record.SuccessfulAlerts,
		record.Status,
		details,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to append alert log for incident %s", record.IncidentID)
	}
	return nil
}

func (pl *PostgresLog) History(ctx context.Context, userID string, limit int) ([]models.AlertLogRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, incident_id, user_id, alert_timestamp, contacts_notified, successful_alerts, status, COALESCE(alert_details::text, '')
		FROM alert_activity
		WHERE user_id = $1
		ORDER BY alert_timestamp DESC
		LIMIT $2
	`

	rows, err := pl.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query alert history")
	}
	defer rows.Close()

	history := []models.AlertLogRecord{}
	for rows.Next() {
		var record models.AlertLogRecord
		var details string

		err := rows.Scan(
			&record.ID,
			&record.IncidentID,
			&record.UserID,
			&record.AlertTimestamp,
			&record.ContactsNotified,
			&record.SuccessfulAlerts,
			&record.Status,
			&details,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan alert log")
		}

		if details != "" {
			record.Details = []byte(details)
		}
		history = append(history, record)
	}

	return history, rows.Err()
}
