package persistence

import (
	"github.com/Daskott/rightguard/server/models"
)

// FallbackStore routes writes to the remote strategy when the user is
// authenticated and to the local one otherwise. Failed remote loads fall back
// to the local cache.
type FallbackStore struct {
	remote Strategy
	local  *LocalStrategy
}

// NewFallbackStore composes remote & local. remote is nil for unauthenticated users.
func NewFallbackStore(remote Strategy, local *LocalStrategy) *FallbackStore {
	return &FallbackStore{remote: remote, local: local}
}

func (fs *FallbackStore) Authenticated() bool {
	return fs.remote != nil
}

func (fs *FallbackStore) Local() *LocalStrategy {
	return fs.local
}

// LoadIncidents returns the remote set, or the cached set with a
// remote_unavailable kind when the remote load fails.
func (fs *FallbackStore) LoadIncidents() models.Result[[]models.Incident] {
	if !fs.Authenticated() {
		return fs.local.LoadIncidents()
	}

	res := fs.remote.LoadIncidents()
	if res.Success() {
		return res
	}

	fs.local.logg.Warnf("%vremote incidents unavailable, using local cache: %v", prefix, res.Err)
	cached := fs.local.LoadIncidents()
	return models.ErrWithData(cached.Data, models.RemoteUnavailable, "%s", res.Err)
}

func (fs *FallbackStore) LoadContacts() models.Result[[]models.EmergencyContact] {
	if !fs.Authenticated() {
		return fs.local.LoadContacts()
	}

	res := fs.remote.LoadContacts()
	if res.Success() {
		return res
	}

	fs.local.logg.Warnf("%vremote contacts unavailable, using local cache: %v", prefix, res.Err)
	cached := fs.local.LoadContacts()
	return models.ErrWithData(cached.Data, models.RemoteUnavailable, "%s", res.Err)
}

func (fs *FallbackStore) CreateIncident(incident models.Incident) models.Result[models.Incident] {
	return fs.writer().CreateIncident(incident)
}

func (fs *FallbackStore) UpdateIncident(incidentID string, update models.IncidentUpdate) models.Result[models.Incident] {
	return fs.writer().UpdateIncident(incidentID, update)
}

func (fs *FallbackStore) AddContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	return fs.writer().AddContact(contact)
}

func (fs *FallbackStore) UpdateContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	return fs.writer().UpdateContact(contact)
}

func (fs *FallbackStore) RemoveContact(contactID string) models.Result[string] {
	return fs.writer().RemoveContact(contactID)
}

func (fs *FallbackStore) MirrorIncidents(incidents []models.Incident) {
	fs.local.MirrorIncidents(incidents)
}

func (fs *FallbackStore) MirrorContacts(contacts []models.EmergencyContact) {
	fs.local.MirrorContacts(contacts)
}

func (fs *FallbackStore) writer() Strategy {
	if fs.Authenticated() {
		return fs.remote
	}
	return fs.local
}
