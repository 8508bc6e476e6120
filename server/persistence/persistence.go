package persistence

import (
	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/cache"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"go.uber.org/zap"
)

var prefix = colors.Prefix("persistence")

// Strategy is where a session reads and writes its incidents & contacts
type Strategy interface {
	LoadIncidents() models.Result[[]models.Incident]
	CreateIncident(incident models.Incident) models.Result[models.Incident]
	UpdateIncident(incidentID string, update models.IncidentUpdate) models.Result[models.Incident]

	LoadContacts() models.Result[[]models.EmergencyContact]
	AddContact(contact models.EmergencyContact) models.Result[models.EmergencyContact]
	UpdateContact(contact models.EmergencyContact) models.Result[models.EmergencyContact]
	RemoveContact(contactID string) models.Result[string]
}

// RemoteStore is the part of the remote store client a RemoteStrategy uses
type RemoteStore interface {
	GetUserIncidents(userID string) models.Result[[]models.Incident]
	CreateIncident(incident models.Incident) models.Result[models.Incident]
	UpdateIncident(userID, incidentID string, update models.IncidentUpdate) models.Result[models.Incident]

	GetUserEmergencyContacts(userID string) models.Result[[]models.EmergencyContact]
	AddEmergencyContact(userID string, input models.ContactInput) models.Result[models.EmergencyContact]
	UpdateEmergencyContact(contact models.EmergencyContact) models.Result[models.EmergencyContact]
	RemoveEmergencyContact(userID, contactID string) models.Result[string]
}

// RemoteStrategy persists to the remote store on behalf of one user
type RemoteStrategy struct {
	store  RemoteStore
	userID string
}

func NewRemoteStrategy(store RemoteStore, userID string) *RemoteStrategy {
	return &RemoteStrategy{store: store, userID: userID}
}

func (rs *RemoteStrategy) LoadIncidents() models.Result[[]models.Incident] {
	return rs.store.GetUserIncidents(rs.userID)
}

func (rs *RemoteStrategy) CreateIncident(incident models.Incident) models.Result[models.Incident] {
	incident.UserID = rs.userID
	return rs.store.CreateIncident(incident)
}

func (rs *RemoteStrategy) UpdateIncident(incidentID string, update models.IncidentUpdate) models.Result[models.Incident] {
	return rs.store.UpdateIncident(rs.userID, incidentID, update)
}

func (rs *RemoteStrategy) LoadContacts() models.Result[[]models.EmergencyContact] {
	return rs.store.GetUserEmergencyContacts(rs.userID)
}

// AddContact stores contact remotely, the returned contact carries the backend assigned id
func (rs *RemoteStrategy) AddContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	return rs.store.AddEmergencyContact(rs.userID, models.ContactInput{
		Name:         contact.Name,
		Phone:        contact.Phone,
		Email:        contact.Email,
		Relationship: contact.Relationship,
	})
}

func (rs *RemoteStrategy) UpdateContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	contact.UserID = rs.userID
	return rs.store.UpdateEmergencyContact(contact)
}

func (rs *RemoteStrategy) RemoveContact(contactID string) models.Result[string] {
	return rs.store.RemoveEmergencyContact(rs.userID, contactID)
}

// LocalStrategy reads from the local cache. Writes succeed without doing
// anything: the managers mirror their whole in-memory set after each mutation.
type LocalStrategy struct {
	cache cache.Cache
	logg  *zap.SugaredLogger
}

func NewLocalStrategy(c cache.Cache, logg *zap.SugaredLogger) *LocalStrategy {
	return &LocalStrategy{cache: c, logg: logger.OrDefault(logg)}
}

func (ls *LocalStrategy) LoadIncidents() models.Result[[]models.Incident] {
	incidents := []models.Incident{}
	ls.cache.Load(cache.Incidents, &incidents)
	return models.Ok(incidents)
}

func (ls *LocalStrategy) CreateIncident(incident models.Incident) models.Result[models.Incident] {
	return models.Ok(incident)
}

func (ls *LocalStrategy) UpdateIncident(incidentID string, update models.IncidentUpdate) models.Result[models.Incident] {
	return models.Ok(models.Incident{ID: incidentID})
}

func (ls *LocalStrategy) LoadContacts() models.Result[[]models.EmergencyContact] {
	contacts := []models.EmergencyContact{}
	ls.cache.Load(cache.EmergencyContacts, &contacts)
	return models.Ok(contacts)
}

func (ls *LocalStrategy) AddContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	return models.Ok(contact)
}

func (ls *LocalStrategy) UpdateContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	return models.Ok(contact)
}

func (ls *LocalStrategy) RemoveContact(contactID string) models.Result[string] {
	return models.Ok(contactID)
}

// MirrorIncidents overwrites the cached incident set. Failures are only logged.
func (ls *LocalStrategy) MirrorIncidents(incidents []models.Incident) {
	if err := ls.cache.Save(cache.Incidents, incidents); err != nil {
		ls.logg.Errorf("%vunable to mirror incidents: %v", prefix, err)
	}
}

// MirrorContacts overwrites the cached contact set. Failures are only logged.
func (ls *LocalStrategy) MirrorContacts(contacts []models.EmergencyContact) {
	if err := ls.cache.Save(cache.EmergencyContacts, contacts); err != nil {
		ls.logg.Errorf("%vunable to mirror contacts: %v", prefix, err)
	}
}
