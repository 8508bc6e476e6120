package models

import "time"

type Channel string

const (
	SMS   Channel = "sms"
	Email Channel = "email"
	Push  Channel = "push"
)

// AllChannels is the set of channels used for an emergency alert
var AllChannels = []Channel{SMS, Email, Push}

// TestChannels is the set of channels used for a test alert
var TestChannels = []Channel{SMS, Email}

const (
	AlertStatusCompleted      = "completed"
	AlertStatusPartialFailure = "partial_failure"
	AlertStatusFailed         = "failed"
	AlertStatusTest           = "test"
)

type AlertAttempt struct {
	Channel   Channel   `json:"channel"`
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ContactAlertResult struct {
	ContactID   string         `json:"contact_id"`
	ContactName string         `json:"contact_name"`
	Phone       string         `json:"phone"`
	Email       string         `json:"email"`
	Message     string         `json:"message,omitempty"`
	Error       string         `json:"error,omitempty"`
	Attempts    []AlertAttempt `json:"attempts"`
}

// SucceededChannels returns how many attempts were successful
func (r ContactAlertResult) SucceededChannels() int {
	count := 0
	for _, attempt := range r.Attempts {
		if attempt.Success {
			count++
		}
	}
	return count
}

type AlertOutcome struct {
	IncidentID       string               `json:"incident_id"`
	Results          []ContactAlertResult `json:"results"`
	TotalContacts    int                  `json:"total_contacts"`
	SuccessfulAlerts int                  `json:"successful_alerts"`
}

type AlertLogRecord struct {
	ID               int64     `json:"id"`
	IncidentID       string    `json:"incident_id"`
	UserID           string    `json:"user_id"`
	AlertTimestamp   time.Time `json:"alert_timestamp"`
	ContactsNotified int       `json:"contacts_notified"`
	SuccessfulAlerts int       `json:"successful_alerts"`
	Status           string    `json:"status"`
	Details          []byte    `json:"details,omitempty"`
}
