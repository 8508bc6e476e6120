package incidents

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ErrSummaryRequired = "Interaction summary is required"

var prefix = colors.Prefix("incidents")

// Store is the persistence the incident manager depends on
type Store interface {
	Authenticated() bool
	LoadIncidents() models.Result[[]models.Incident]
	CreateIncident(incident models.Incident) models.Result[models.Incident]
	UpdateIncident(incidentID string, update models.IncidentUpdate) models.Result[models.Incident]
	MirrorIncidents(incidents []models.Incident)
}

type Alerter interface {
	Dispatch(ctx context.Context, incident models.Incident, contacts []models.EmergencyContact) models.Result[models.AlertOutcome]
}

type Summarizer interface {
	IncidentSummary(ctx context.Context, incident models.Incident) (string, error)
}

// Manager owns a user's incidents. The in-memory set is most recent first and is
// mirrored to the local cache after every mutation.
type Manager struct {
	mu         sync.Mutex
	store      Store
	alerter    Alerter
	summarizer Summarizer
	userID     string
	incidents  []models.Incident
	now        func() time.Time
	logg       *zap.SugaredLogger
}

// NewManager returns a manager for userID. summarizer may be nil.
func NewManager(store Store, alerter Alerter, summarizer Summarizer, userID string, logg *zap.SugaredLogger) *Manager {
	return &Manager{
		store:      store,
		alerter:    alerter,
		summarizer: summarizer,
		userID:     userID,
		incidents:  []models.Incident{},
		now:        time.Now,
		logg:       logger.OrDefault(logg),
	}
}

// Load replaces the in-memory set with the stored incidents
func (m *Manager) Load(ctx context.Context) models.Result[[]models.Incident] {
	res := m.store.LoadIncidents()

	m.mu.Lock()
	defer m.mu.Unlock()

	if res.Data != nil {
		m.incidents = res.Data
	}
	if res.Success() && m.store.Authenticated() {
		m.store.MirrorIncidents(m.incidents)
	}

	list := m.snapshot()
	if res.Kind == models.RemoteUnavailable {
		return models.Ok(list).WithWarnings("showing cached incidents: " + res.Err)
	}
	if !res.Success() {
		return models.ErrWithData(list, res.Kind, "%s", res.Err)
	}
	return models.Ok(list)
}

// Incidents returns a copy of the in-memory set
func (m *Manager) Incidents() []models.Incident {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Manager) Get(incidentID string) models.Result[models.Incident] {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(incidentID)
	if idx < 0 {
		return models.Err[models.Incident](models.NotFoundError, "incident %s not found", incidentID)
	}
	return models.Ok(m.incidents[idx])
}

// AddIncident records a new incident and, when contacts are given, alerts them.
// A remote failure fails the result but the incident is still kept locally and
// returned with it.
func (m *Manager) AddIncident(ctx context.Context, input models.IncidentInput, contacts []models.EmergencyContact) models.Result[models.Incident] {
	if strings.TrimSpace(input.InteractionSummary) == "" {
		return models.Validation[models.Incident]([]string{ErrSummaryRequired})
	}

	now := m.now()
	incident := models.Incident{
		ID:                 uuid.NewString(),
		UserID:             models.DemoUserID,
		Timestamp:          now,
		Location:           strings.TrimSpace(input.Location),
		OfficerDetails:     input.OfficerDetails,
		InteractionSummary: input.InteractionSummary,
		RecordingURL:       input.RecordingURL,
		CreatedAt:          now,
	}
	if incident.Location == "" {
		incident.Location = models.UnknownLocation
	}
	if incident.OfficerDetails == nil {
		incident.OfficerDetails = map[string]interface{}{}
	}

	authenticated := m.store.Authenticated()
	if authenticated {
		incident.UserID = m.userID
	}

	warnings := []string{}
	remoteErr := ""

	if authenticated {
		res := m.store.CreateIncident(incident)
		if !res.Success() {
			remoteErr = res.Err
			m.logg.Warnf("%vincident %v kept locally, remote store failed: %v", prefix, incident.ID, res.Err)
		}
	}

	if len(contacts) > 0 && remoteErr == "" {
		warnings = append(warnings, m.alert(ctx, &incident, contacts, authenticated)...)
	}

	m.mu.Lock()
	m.incidents = append([]models.Incident{incident}, m.incidents...)
	m.store.MirrorIncidents(m.incidents)
	m.mu.Unlock()

	if remoteErr != "" {
		return models.ErrWithData(incident, models.RemoteUnavailable, "%s", remoteErr).WithWarnings(warnings...)
	}
	return models.Ok(incident).WithWarnings(warnings...)
}

func (m *Manager) alert(ctx context.Context, incident *models.Incident, contacts []models.EmergencyContact, authenticated bool) []string {
	outcome := m.alerter.Dispatch(ctx, *incident, contacts)
	if !outcome.Success() {
		m.logg.Errorf("%valert dispatch for incident %v failed: %v", prefix, incident.ID, outcome.Err)
		return []string{"alerts were not sent: " + outcome.Err}
	}

	alertSent := true
	update := models.IncidentUpdate{AlertSent: &alertSent, AlertResults: outcome.Data.Results}
	update.ApplyTo(incident)

	if !authenticated {
		return nil
	}

	res := m.store.UpdateIncident(incident.ID, update)
	if !res.Success() {
		m.logg.Warnf("%vunable to record alert results for incident %v: %v", prefix, incident.ID, res.Err)
		return []string{"alert results saved on this device only: " + res.Err}
	}
	return nil
}

// UpdateIncident merges update into the incident, remotely first when authenticated.
// AlertSent is never reset.
func (m *Manager) UpdateIncident(ctx context.Context, incidentID string, update models.IncidentUpdate) models.Result[models.Incident] {
	if update.Empty() {
		return models.Validation[models.Incident]([]string{"no fields to update"})
	}

	warnings := []string{}
	var remote *models.Incident

	if m.store.Authenticated() {
		res := m.store.UpdateIncident(incidentID, update)
		switch {
		case res.Success():
			remote = &res.Data
		case res.Kind == models.NotFoundError:
		default:
			warnings = append(warnings, "incident updated on this device only: "+res.Err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(incidentID)
	if idx < 0 {
		if remote != nil {
			return models.Ok(*remote).WithWarnings(warnings...)
		}
		return models.Err[models.Incident](models.NotFoundError, "incident %s not found", incidentID)
	}

	update.ApplyTo(&m.incidents[idx])
	m.store.MirrorIncidents(m.incidents)

	return models.Ok(m.incidents[idx]).WithWarnings(warnings...)
}

// RemoveIncident hides the incident on this device. Stored incidents are never deleted.
func (m *Manager) RemoveIncident(incidentID string) models.Result[string] {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(incidentID)
	if idx < 0 {
		return models.Err[string](models.NotFoundError, "incident %s not found", incidentID)
	}

	m.incidents = append(m.incidents[:idx:idx], m.incidents[idx+1:]...)
	m.store.MirrorIncidents(m.incidents)

	return models.Ok(incidentID)
}

// Summarize generates a plain language summary of the incident and stores it
func (m *Manager) Summarize(ctx context.Context, incidentID string) models.Result[models.Incident] {
	if m.summarizer == nil {
		return models.Err[models.Incident](models.PreconditionError, "incident summaries are not configured")
	}

	found := m.Get(incidentID)
	if !found.Success() {
		return found
	}

	summary, err := m.summarizer.IncidentSummary(ctx, found.Data)
	if err != nil {
		m.logg.Errorf("%vunable to summarise incident %v: %v", prefix, incidentID, err)
		return models.Err[models.Incident](models.InternalError, "unable to summarise incident: %v", err)
	}

	return m.UpdateIncident(ctx, incidentID, models.IncidentUpdate{Summary: &summary})
}

func (m *Manager) indexOf(incidentID string) int {
	for i, incident := range m.incidents {
		if incident.ID == incidentID {
			return i
		}
	}
	return -1
}

func (m *Manager) snapshot() []models.Incident {
	list := make([]models.Incident, len(m.incidents))
	copy(list, m.incidents)
	return list
}
