package remote

import (
	"errors"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var prefix = colors.Prefix("remote")

// unavailable logs err and maps it onto a typed result. Record not found errors
// become not_found, everything else remote_unavailable.
func unavailable[T any](s *Store, op string, err error) models.Result[T] {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Err[T](models.NotFoundError, "%v: record not found", op)
	}

	s.logg.Errorf("%v%v: %v", prefix, op, err)
	return models.Err[T](models.RemoteUnavailable, "%v: %v", op, err)
}

// ---------------------------------------------------------------------------------//
// Users
// --------------------------------------------------------------------------------//

func (s *Store) CreateUser(user models.User) models.Result[models.User] {
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.FreeSubscription
	}
	if len(user.PreferredLanguages) == 0 {
		user.PreferredLanguages = append([]string{}, models.DefaultLanguages...)
	}

	if err := s.db.Create(&user).Error; err != nil {
		return unavailable[models.User](s, "create user", err)
	}
	return models.Ok(user)
}

func (s *Store) GetUser(userID string) models.Result[models.User] {
	user := models.User{}
	if err := s.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		return unavailable[models.User](s, "get user", err)
	}
	return models.Ok(user)
}

// EnsureUser returns the user, provisioning it with the defaults when it does not exist yet
func (s *Store) EnsureUser(userID string) models.Result[models.User] {
	res := s.GetUser(userID)
	if res.Kind != models.NotFoundError {
		return res
	}

	s.logg.Infof("%vprovisioning user %v", prefix, userID)
	return s.CreateUser(models.NewUser(userID))
}

func (s *Store) UpdateUserSubscription(userID, status string) models.Result[models.User] {
	if status != models.FreeSubscription && status != models.PremiumSubscription {
		return models.Err[models.User](models.ValidationError, "invalid subscription status %q", status)
	}

	res := s.db.Model(&models.User{}).Where("user_id = ?", userID).Update("subscription_status", status)
	if res.Error != nil {
		return unavailable[models.User](s, "update subscription", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Err[models.User](models.NotFoundError, "update subscription: record not found")
	}
	return s.GetUser(userID)
}

// ---------------------------------------------------------------------------------//
// Incidents
// --------------------------------------------------------------------------------//

func (s *Store) CreateIncident(incident models.Incident) models.Result[models.Incident] {
	if err := s.db.Create(&incident).Error; err != nil {
		return unavailable[models.Incident](s, "create incident", err)
	}
	return models.Ok(incident)
}

// GetUserIncidents returns the user's incidents, most recent first
func (s *Store) GetUserIncidents(userID string) models.Result[[]models.Incident] {
	incidents := []models.Incident{}
	err := s.db.Where("user_id = ?", userID).Order("created_at desc").Find(&incidents).Error
	if err != nil {
		return unavailable[[]models.Incident](s, "get incidents", err)
	}
	return models.Ok(incidents)
}

// UpdateIncident merges update into the user's stored incident, only changed columns are written
func (s *Store) UpdateIncident(userID, incidentID string, update models.IncidentUpdate) models.Result[models.Incident] {
	incident := models.Incident{}
	if err := s.db.Where("incident_id = ? AND user_id = ?", incidentID, userID).First(&incident).Error; err != nil {
		return unavailable[models.Incident](s, "update incident", err)
	}

	changed := update.ApplyTo(&incident)
	if len(changed) == 0 {
		return models.Ok(incident)
	}

	err := s.db.Model(&models.Incident{}).
		Where("incident_id = ? AND user_id = ?", incidentID, userID).
		Select(changed).
		Updates(&incident).Error
	if err != nil {
		return unavailable[models.Incident](s, "update incident", err)
	}
	return models.Ok(incident)
}

// ---------------------------------------------------------------------------------//
// Emergency contacts
// --------------------------------------------------------------------------------//

// AddEmergencyContact stores contact under a backend assigned id
func (s *Store) AddEmergencyContact(userID string, input models.ContactInput) models.Result[models.EmergencyContact] {
	in := input.Trimmed()
	contact := models.EmergencyContact{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		Relationship: in.Relationship,
	}

	if err := s.db.Create(&contact).Error; err != nil {
		return unavailable[models.EmergencyContact](s, "add contact", err)
	}
	return models.Ok(contact)
}

// GetUserEmergencyContacts returns the user's contacts, oldest first
func (s *Store) GetUserEmergencyContacts(userID string) models.Result[[]models.EmergencyContact] {
	contacts := []models.EmergencyContact{}
	err := s.db.Where("user_id = ?", userID).Order("created_at asc").Find(&contacts).Error
	if err != nil {
		return unavailable[[]models.EmergencyContact](s, "get contacts", err)
	}
	return models.Ok(contacts)
}

// UpdateEmergencyContact writes the editable fields of contact
func (s *Store) UpdateEmergencyContact(contact models.EmergencyContact) models.Result[models.EmergencyContact] {
	res := s.db.Model(&models.EmergencyContact{}).
		Where("id = ? AND user_id = ?", contact.ID, contact.UserID).
		Select(models.ContactUpdatableFields()).
		Updates(&contact)

	if res.Error != nil {
		return unavailable[models.EmergencyContact](s, "update contact", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Err[models.EmergencyContact](models.NotFoundError, "update contact: record not found")
	}
	return models.Ok(contact)
}

func (s *Store) RemoveEmergencyContact(userID, contactID string) models.Result[string] {
	res := s.db.Where("id = ? AND user_id = ?", contactID, userID).Delete(&models.EmergencyContact{})
	if res.Error != nil {
		return unavailable[string](s, "remove contact", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Err[string](models.NotFoundError, "remove contact: record not found")
	}
	return models.Ok(contactID)
}
