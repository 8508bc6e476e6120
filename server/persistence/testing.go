package persistence

import (
	"fmt"
	"sync"

	"github.com/Daskott/rightguard/server/models"
)

// RemoteStoreStub is an in-memory RemoteStore. Setting Unavailable makes every
// call fail with remote_unavailable.
type RemoteStoreStub struct {
	mu          sync.Mutex
	Unavailable bool
	Incidents   []models.Incident
	Contacts    []models.EmergencyContact
	Users       map[string]models.User
	Calls       []string
	nextID      int
}

func (s *RemoteStoreStub) call(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, name)
	return s.Unavailable
}

func (s *RemoteStoreStub) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, call := range s.Calls {
		if call == name {
			count++
		}
	}
	return count
}

func (s *RemoteStoreStub) GetUserIncidents(userID string) models.Result[[]models.Incident] {
	if s.call("GetUserIncidents") {
		return models.Err[[]models.Incident](models.RemoteUnavailable, "get incidents: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	incidents := []models.Incident{}
	for i := len(s.Incidents) - 1; i >= 0; i-- {
		if s.Incidents[i].UserID == userID {
			incidents = append(incidents, s.Incidents[i])
		}
	}
	return models.Ok(incidents)
}

func (s *RemoteStoreStub) CreateIncident(incident models.Incident) models.Result[models.Incident] {
	if s.call("CreateIncident") {
		return models.Err[models.Incident](models.RemoteUnavailable, "create incident: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Incidents = append(s.Incidents, incident)
	return models.Ok(incident)
}

func (s *RemoteStoreStub) UpdateIncident(userID, incidentID string, update models.IncidentUpdate) models.Result[models.Incident] {
	if s.call("UpdateIncident") {
		return models.Err[models.Incident](models.RemoteUnavailable, "update incident: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Incidents {
		if s.Incidents[i].ID == incidentID && s.Incidents[i].UserID == userID {
			update.ApplyTo(&s.Incidents[i])
			return models.Ok(s.Incidents[i])
		}
	}
	return models.Err[models.Incident](models.NotFoundError, "update incident: record not found")
}

func (s *RemoteStoreStub) GetUserEmergencyContacts(userID string) models.Result[[]models.EmergencyContact] {
	if s.call("GetUserEmergencyContacts") {
		return models.Err[[]models.EmergencyContact](models.RemoteUnavailable, "get contacts: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := []models.EmergencyContact{}
	for _, contact := range s.Contacts {
		if contact.UserID == userID {
			contacts = append(contacts, contact)
		}
	}
	return models.Ok(contacts)
}

func (s *RemoteStoreStub) AddEmergencyContact(userID string, input models.ContactInput) models.Result[models.EmergencyContact] {
	if s.call("AddEmergencyContact") {
		return models.Err[models.EmergencyContact](models.RemoteUnavailable, "add contact: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	in := input.Trimmed()
	contact := models.EmergencyContact{
		ID:           fmt.Sprintf("remote-%d", s.nextID),
		UserID:       userID,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		Relationship: in.Relationship,
	}
	s.Contacts = append(s.Contacts, contact)
	return models.Ok(contact)
}

func (s *RemoteStoreStub) UpdateEmergencyContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	if s.call("UpdateEmergencyContact") {
		return models.Err[models.EmergencyContact](models.RemoteUnavailable, "update contact: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Contacts {
		if s.Contacts[i].ID == contact.ID {
			s.Contacts[i] = contact
			return models.Ok(contact)
		}
	}
	return models.Err[models.EmergencyContact](models.NotFoundError, "update contact: record not found")
}

func (s *RemoteStoreStub) RemoveEmergencyContact(userID, contactID string) models.Result[string] {
	if s.call("RemoveEmergencyContact") {
		return models.Err[string](models.RemoteUnavailable, "remove contact: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Contacts {
		if s.Contacts[i].ID == contactID {
			s.Contacts = append(s.Contacts[:i], s.Contacts[i+1:]...)
			return models.Ok(contactID)
		}
	}
	return models.Err[string](models.NotFoundError, "remove contact: record not found")
}

func (s *RemoteStoreStub) EnsureUser(userID string) models.Result[models.User] {
	if s.call("EnsureUser") {
		return models.Err[models.User](models.RemoteUnavailable, "ensure user: connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Users == nil {
		s.Users = map[string]models.User{}
	}
	user, ok := s.Users[userID]
	if !ok {
		user = models.NewUser(userID)
		s.Users[userID] = user
	}
	return models.Ok(user)
}

func (s *RemoteStoreStub) UpdateUserSubscription(userID, status string) models.Result[models.User] {
	if s.call("UpdateUserSubscription") {
		return models.Err[models.User](models.RemoteUnavailable, "update subscription: connection refused")
	}
	if status != models.FreeSubscription && status != models.PremiumSubscription {
		return models.Err[models.User](models.ValidationError, "invalid subscription status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.Users[userID]
	if !ok {
		return models.Err[models.User](models.NotFoundError, "update subscription: record not found")
	}
	user.SubscriptionStatus = status
	s.Users[userID] = user
	return models.Ok(user)
}
