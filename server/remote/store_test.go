package remote

import (
	"testing"
	"time"

	"github.com/Daskott/rightguard/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	dialector, err := Sqlite("passphrase", t.TempDir())
	require.Nil(t, err)

	store, err := Open(dialector, nil)
	require.Nil(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestEnsureUser(t *testing.T) {
	store := newTestStore(t)

	res := store.GetUser("user-1")
	assert.Equal(t, models.NotFoundError, res.Kind)

	res = store.EnsureUser("user-1")
	require.True(t, res.Success(), res.Error())
	assert.Equal(t, models.FreeSubscription, res.Data.SubscriptionStatus)
	assert.Equal(t, []string{"en"}, res.Data.PreferredLanguages)

	res = store.UpdateUserSubscription("user-1", models.PremiumSubscription)
	require.True(t, res.Success(), res.Error())
	assert.Equal(t, models.PremiumSubscription, res.Data.SubscriptionStatus)

	res = store.UpdateUserSubscription("user-1", "gold")
	assert.Equal(t, models.ValidationError, res.Kind)
}

func TestIncidents(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	for i, id := range []string{"i1", "i2"} {
		res := store.CreateIncident(models.Incident{
			ID:                 id,
			UserID:             "user-1",
			Timestamp:          now,
			Location:           models.UnknownLocation,
			OfficerDetails:     map[string]interface{}{"badge": "123"},
			InteractionSummary: "Pulled over",
			CreatedAt:          now.Add(time.Duration(i) * time.Minute),
		})
		require.True(t, res.Success(), res.Error())
	}

	list := store.GetUserIncidents("user-1")
	require.True(t, list.Success(), list.Error())
	require.Len(t, list.Data, 2)
	assert.Equal(t, "i2", list.Data[0].ID, "Most recent incident should be first")
	assert.Equal(t, "123", list.Data[1].OfficerDetails["badge"])

	alertSent := true
	results := []models.ContactAlertResult{{ContactID: "c1", ContactName: "Jane"}}
	updated := store.UpdateIncident("user-1", "i1", models.IncidentUpdate{AlertSent: &alertSent, AlertResults: results})
	require.True(t, updated.Success(), updated.Error())

	notSent := false
	location := "Main St"
	updated = store.UpdateIncident("user-1", "i1", models.IncidentUpdate{AlertSent: &notSent, Location: &location})
	require.True(t, updated.Success(), updated.Error())

	list = store.GetUserIncidents("user-1")
	assert.True(t, list.Data[1].AlertSent, "alert sent should never be reset")
	assert.Equal(t, "Main St", list.Data[1].Location)
	assert.Equal(t, "Jane", list.Data[1].AlertResults[0].ContactName)

	missing := store.UpdateIncident("user-1", "missing", models.IncidentUpdate{Location: &location})
	assert.Equal(t, models.NotFoundError, missing.Kind)
}

func TestUpdateIncidentIsScopedToUser(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	res := store.CreateIncident(models.Incident{
		ID:                 "alice-inc",
		UserID:             "alice",
		Timestamp:          now,
		Location:           "Queen St",
		InteractionSummary: "secret",
		CreatedAt:          now,
	})
	require.True(t, res.Success(), res.Error())

	location := "somewhere else"
	other := store.UpdateIncident("mallory", "alice-inc", models.IncidentUpdate{Location: &location})
	assert.Equal(t, models.NotFoundError, other.Kind)
	assert.Empty(t, other.Data.InteractionSummary)

	list := store.GetUserIncidents("alice")
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Queen St", list.Data[0].Location)
}

func TestEmergencyContacts(t *testing.T) {
	store := newTestStore(t)

	added := store.AddEmergencyContact("user-1", models.ContactInput{
		Name: " Jane ", Phone: "5551234567", Email: "jane@example.com", Relationship: "Sister",
	})
	require.True(t, added.Success(), added.Error())
	assert.NotEmpty(t, added.Data.ID)
	assert.Equal(t, "Jane", added.Data.Name)

	second := store.AddEmergencyContact("user-1", models.ContactInput{
		Name: "John", Phone: "5559876543", Email: "john@example.com", Relationship: "Friend",
	})
	require.True(t, second.Success(), second.Error())

	contact := added.Data
	contact.Name = "Jane Doe"
	updatedAt := time.Now()
	contact.UpdatedAt = &updatedAt
	updated := store.UpdateEmergencyContact(contact)
	require.True(t, updated.Success(), updated.Error())

	list := store.GetUserEmergencyContacts("user-1")
	require.True(t, list.Success(), list.Error())
	require.Len(t, list.Data, 2)
	assert.Equal(t, "Jane Doe", list.Data[0].Name)
	assert.NotNil(t, list.Data[0].UpdatedAt)

	removed := store.RemoveEmergencyContact("user-1", second.Data.ID)
	require.True(t, removed.Success(), removed.Error())

	removed = store.RemoveEmergencyContact("user-1", second.Data.ID)
	assert.Equal(t, models.NotFoundError, removed.Kind)

	list = store.GetUserEmergencyContacts("user-2")
	assert.Empty(t, list.Data, "contacts are scoped by user")
}
