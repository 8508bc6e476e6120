package models

import "time"

const (
	// DemoUserID marks incidents recorded without a signed in user
	DemoUserID = "demo"

	UnknownLocation = "Unknown location"
)

type Incident struct {
	ID                 string                 `json:"id" gorm:"column:incident_id;primarykey"`
	UserID             string                 `json:"user_id" gorm:"index;not null"`
	Timestamp          time.Time              `json:"timestamp"`
	Location           string                 `json:"location"`
	OfficerDetails     map[string]interface{} `json:"officer_details" gorm:"serializer:json;type:text"`
	InteractionSummary string                 `json:"interaction_summary" gorm:"not null"`
	RecordingURL       string                 `json:"recording_url,omitempty"`
	AlertSent          bool                   `json:"alert_sent" gorm:"default:false"`
	AlertResults       []ContactAlertResult   `json:"alert_results,omitempty" gorm:"serializer:json;type:text"`
	Summary            string                 `json:"summary,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// IncidentInput is the caller supplied part of a new incident
type IncidentInput struct {
	Location           string                 `json:"location"`
	OfficerDetails     map[string]interface{} `json:"officer_details"`
	InteractionSummary string                 `json:"interaction_summary"`
	RecordingURL       string                 `json:"recording_url"`
}

// IncidentUpdate holds a partial incident update, nil fields are left untouched
type IncidentUpdate struct {
	Location           *string                `json:"location,omitempty"`
	OfficerDetails     map[string]interface{} `json:"officer_details,omitempty"`
	InteractionSummary *string                `json:"interaction_summary,omitempty"`
	RecordingURL       *string                `json:"recording_url,omitempty"`
	AlertSent          *bool                  `json:"alert_sent,omitempty"`
	AlertResults       []ContactAlertResult   `json:"alert_results,omitempty"`
	Summary            *string                `json:"summary,omitempty"`
}

// ApplyTo merges the update into incident and returns the columns that changed.
// AlertSent is never reset once it is true.
func (u IncidentUpdate) ApplyTo(incident *Incident) []string {
	changed := []string{}

	if u.Location != nil {
		incident.Location = *u.Location
		changed = append(changed, "location")
	}
	if u.OfficerDetails != nil {
		incident.OfficerDetails = u.OfficerDetails
		changed = append(changed, "officer_details")
	}
	if u.InteractionSummary != nil {
		incident.InteractionSummary = *u.InteractionSummary
		changed = append(changed, "interaction_summary")
	}
	if u.RecordingURL != nil {
		incident.RecordingURL = *u.RecordingURL
		changed = append(changed, "recording_url")
	}
	if u.AlertSent != nil && *u.AlertSent && !incident.AlertSent {
		incident.AlertSent = true
		changed = append(changed, "alert_sent")
	}
	if u.AlertResults != nil {
		incident.AlertResults = u.AlertResults
		changed = append(changed, "alert_results")
	}
	if u.Summary != nil {
		incident.Summary = *u.Summary
		changed = append(changed, "summary")
	}

	return changed
}

func (u IncidentUpdate) Empty() bool {
	return u.Location == nil && u.OfficerDetails == nil && u.InteractionSummary == nil &&
		u.RecordingURL == nil && u.AlertSent == nil && u.AlertResults == nil && u.Summary == nil
}
