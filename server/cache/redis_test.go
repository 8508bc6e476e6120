package cache

import (
	"context"
	"testing"

	"github.com/Daskott/rightguard/server/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisCacheSaveAndLoad(t *testing.T) {
	mr, client := newTestRedis(t)
	rc := NewRedisCache(client, "user-1", nil)

	contacts := []models.EmergencyContact{{ID: "c1", Name: "Jane"}, {ID: "c2", Name: "John"}}
	require.Nil(t, rc.Save(EmergencyContacts, contacts))
	assert.True(t, mr.Exists("rightguard:user-1:rightguard-emergency-contacts"))

	loaded := []models.EmergencyContact{}
	rc.Load(EmergencyContacts, &loaded)
	require.Len(t, loaded, 2)
	assert.Equal(t, []string{"c1", "c2"}, []string{loaded[0].ID, loaded[1].ID})

	// Last writer wins
	require.Nil(t, rc.Save(EmergencyContacts, contacts[:1]))
	loaded = []models.EmergencyContact{}
	rc.Load(EmergencyContacts, &loaded)
	assert.Len(t, loaded, 1)
}

func TestRedisCacheScopesAreIsolated(t *testing.T) {
	_, client := newTestRedis(t)

	require.Nil(t, NewRedisCache(client, "device-a", nil).Save(Incidents, []models.Incident{{ID: "i1"}}))

	loaded := []models.Incident{}
	NewRedisCache(client, "device-b", nil).Load(Incidents, &loaded)
	assert.Empty(t, loaded)
}

func TestRedisCacheLoadFailsSoft(t *testing.T) {
	tests := []struct {
		description string
		blob        string
	}{
		{"Should ignore a blob that is not json", "{not json"},
		{"Should ignore a blob of the wrong shape", `{"id":"c1"}`},
		{"Should ignore a blob that fails part way", `[{"id":"a","name":"Jane"},{"id":5}]`},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			mr, client := newTestRedis(t)
			rc := NewRedisCache(client, "user-1", nil)
			require.Nil(t, mr.Set("rightguard:user-1:rightguard-emergency-contacts", tc.blob))

			loaded := []models.EmergencyContact{}
			rc.Load(EmergencyContacts, &loaded)
			assert.Empty(t, loaded)
		})
	}
}

func TestRedisCacheMissingKeyLeavesOutUntouched(t *testing.T) {
	_, client := newTestRedis(t)
	rc := NewRedisCache(client, "user-1", nil)

	loaded := []models.Incident{{ID: "kept"}}
	rc.Load(Incidents, &loaded)
	assert.Equal(t, []models.Incident{{ID: "kept"}}, loaded)
}

func TestRedisCacheUnreachableServer(t *testing.T) {
	mr, client := newTestRedis(t)
	rc := NewRedisCache(client, "user-1", nil)
	require.Nil(t, rc.Save(Incidents, []models.Incident{{ID: "i1"}}))
	mr.Close()

	loaded := []models.Incident{}
	rc.Load(Incidents, &loaded)
	assert.Empty(t, loaded, "load should fail soft")

	assert.NotNil(t, rc.Save(Incidents, []models.Incident{{ID: "i2"}}))
	assert.NotNil(t, rc.Clear())
}

func TestRedisCacheClear(t *testing.T) {
	mr, client := newTestRedis(t)
	rc := NewRedisCache(client, "device-a", nil)
	other := NewRedisCache(client, "device-b", nil)

	require.Nil(t, rc.Save(Incidents, []models.Incident{{ID: "i1"}}))
	require.Nil(t, rc.Save(EmergencyContacts, []models.EmergencyContact{{ID: "c1"}}))
	require.Nil(t, other.Save(Incidents, []models.Incident{{ID: "i2"}}))

	require.Nil(t, rc.Clear())
	assert.False(t, mr.Exists("rightguard:device-a:rightguard-incidents"))
	assert.False(t, mr.Exists("rightguard:device-a:rightguard-emergency-contacts"))
	assert.True(t, mr.Exists("rightguard:device-b:rightguard-incidents"))
}

func TestNewRedisClient(t *testing.T) {
	mr, _ := newTestRedis(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.Nil(t, err)
	client.Close()

	_, err = NewRedisClient(context.Background(), "not a url")
	assert.NotNil(t, err)
}
