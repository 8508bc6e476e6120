package contacts

import (
	"context"
	"sync"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ErrNoContactsToTest  = "No emergency contacts to test"
	ErrNoContactsToAlert = "No emergency contacts configured"

	recentWindow = 7 * 24 * time.Hour
)

var prefix = colors.Prefix("contacts")

// Store is the persistence the contact manager depends on
type Store interface {
	Authenticated() bool
	LoadContacts() models.Result[[]models.EmergencyContact]
	AddContact(contact models.EmergencyContact) models.Result[models.EmergencyContact]
	UpdateContact(contact models.EmergencyContact) models.Result[models.EmergencyContact]
	RemoveContact(contactID string) models.Result[string]
	MirrorContacts(contacts []models.EmergencyContact)
}

type Alerter interface {
	Dispatch(ctx context.Context, incident models.Incident, contacts []models.EmergencyContact) models.Result[models.AlertOutcome]
	SendTest(ctx context.Context, userID string, contacts []models.EmergencyContact) models.Result[models.AlertOutcome]
}

// Manager exclusively owns a user's emergency contacts
type Manager struct {
	mu       sync.Mutex
	store    Store
	alerter  Alerter
	userID   string
	contacts []models.EmergencyContact
	now      func() time.Time
	logg     *zap.SugaredLogger
}

func NewManager(store Store, alerter Alerter, userID string, logg *zap.SugaredLogger) *Manager {
	return &Manager{
		store:    store,
		alerter:  alerter,
		userID:   userID,
		contacts: []models.EmergencyContact{},
		now:      time.Now,
		logg:     logger.OrDefault(logg),
	}
}

func (m *Manager) Load(ctx context.Context) models.Result[[]models.EmergencyContact] {
	res := m.store.LoadContacts()

	m.mu.Lock()
	defer m.mu.Unlock()

	if res.Data != nil {
		m.contacts = res.Data
	}
	if res.Success() && m.store.Authenticated() {
		m.store.MirrorContacts(m.contacts)
	}

	list := m.snapshot()
	if res.Kind == models.RemoteUnavailable {
		return models.Ok(list).WithWarnings("showing cached contacts: " + res.Err)
	}
	if !res.Success() {
		return models.ErrWithData(list, res.Kind, "%s", res.Err)
	}
	return models.Ok(list)
}

// Contacts returns a copy of the in-memory set, oldest first
func (m *Manager) Contacts() []models.EmergencyContact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// AddContact validates input against the existing contacts and stores it. When the
// remote store accepts the contact its id replaces the locally generated one.
func (m *Manager) AddContact(ctx context.Context, input models.ContactInput) models.Result[models.EmergencyContact] {
	in := input.Trimmed()

	m.mu.Lock()
	defer m.mu.Unlock()

	res := validation.ValidateContact(validation.CandidateFromInput(in), m.contacts)
	if !res.Valid {
		return models.Validation[models.EmergencyContact](res.Errors)
	}

	now := m.now()
	contact := models.EmergencyContact{
		ID:           "local_" + uuid.NewString(),
		UserID:       models.DemoUserID,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		Relationship: in.Relationship,
		CreatedAt:    now,
	}

	warnings := []string{}
	if m.store.Authenticated() {
		contact.UserID = m.userID

		stored := m.store.AddContact(contact)
		if stored.Success() {
			contact.ID = stored.Data.ID
		} else {
			m.logg.Warnf("%vcontact %v saved locally only: %v", prefix, contact.ID, stored.Err)
			warnings = append(warnings, "contact saved on this device only: "+stored.Err)
		}
	}

	m.contacts = append(m.contacts, contact)
	m.store.MirrorContacts(m.contacts)

	return models.Ok(contact).WithWarnings(warnings...)
}

// UpdateContact merges update onto the contact and re-validates the merged record
func (m *Manager) UpdateContact(ctx context.Context, contactID string, update models.ContactUpdate) models.Result[models.EmergencyContact] {
	if update.Empty() {
		return models.Validation[models.EmergencyContact]([]string{"no fields to update"})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(contactID)
	if idx < 0 {
		return models.Err[models.EmergencyContact](models.NotFoundError, "contact %s not found", contactID)
	}

	merged := m.contacts[idx]
	update.ApplyTo(&merged)

	res := validation.ValidateContact(validation.CandidateFromContact(merged), m.contacts)
	if !res.Valid {
		return models.Validation[models.EmergencyContact](res.Errors)
	}

	updatedAt := m.now()
	merged.UpdatedAt = &updatedAt

	warnings := []string{}
	if m.store.Authenticated() {
		stored := m.store.UpdateContact(merged)
		if !stored.Success() {
			m.logg.Warnf("%vcontact %v updated locally only: %v", prefix, contactID, stored.Err)
			warnings = append(warnings, "contact updated on this device only: "+stored.Err)
		}
	}

	m.contacts[idx] = merged
	m.store.MirrorContacts(m.contacts)

	return models.Ok(merged).WithWarnings(warnings...)
}

func (m *Manager) RemoveContact(ctx context.Context, contactID string) models.Result[string] {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(contactID)
	if idx < 0 {
		return models.Err[string](models.NotFoundError, "contact %s not found", contactID)
	}

	warnings := []string{}
	if m.store.Authenticated() {
		removed := m.store.RemoveContact(contactID)
		if !removed.Success() {
			m.logg.Warnf("%vcontact %v removed locally only: %v", prefix, contactID, removed.Err)
			warnings = append(warnings, "contact removed on this device only: "+removed.Err)
		}
	}

	m.contacts = append(m.contacts[:idx:idx], m.contacts[idx+1:]...)
	m.store.MirrorContacts(m.contacts)

	return models.Ok(contactID).WithWarnings(warnings...)
}

// Stats is computed from the current set at now, nothing is cached
func (m *Manager) Stats(now time.Time) models.ContactStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.ContactStats{Total: len(m.contacts), ByRelationship: map[string]int{}}
	for _, contact := range m.contacts {
		if contact.Phone != "" {
			stats.WithPhone++
		}
		if contact.Email != "" {
			stats.WithEmail++
		}
		if now.Sub(contact.CreatedAt) <= recentWindow {
			stats.RecentlyAdded++
		}
		stats.ByRelationship[contact.Relationship]++
	}

	return stats
}

// TestAlerts sends the fixed test message to every contact
func (m *Manager) TestAlerts(ctx context.Context) models.Result[models.AlertOutcome] {
	list := m.Contacts()
	if len(list) == 0 {
		return models.Err[models.AlertOutcome](models.PreconditionError, ErrNoContactsToTest)
	}
	return m.alerter.SendTest(ctx, m.userID, list)
}

// SendEmergencyAlert alerts every contact about incident
func (m *Manager) SendEmergencyAlert(ctx context.Context, incident models.Incident) models.Result[models.AlertOutcome] {
	list := m.Contacts()
	if len(list) == 0 {
		return models.Err[models.AlertOutcome](models.PreconditionError, ErrNoContactsToAlert)
	}
	return m.alerter.Dispatch(ctx, incident, list)
}

func (m *Manager) indexOf(contactID string) int {
	for i, contact := range m.contacts {
		if contact.ID == contactID {
			return i
		}
	}
	return -1
}

func (m *Manager) snapshot() []models.EmergencyContact {
	list := make([]models.EmergencyContact, len(m.contacts))
	copy(list, m.contacts)
	return list
}
