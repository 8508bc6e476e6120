package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Daskott/rightguard/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageKeys(t *testing.T) {
	assert.Equal(t, "rightguard-incidents", Incidents.StorageKey())
	assert.Equal(t, "rightguard-emergency-contacts", EmergencyContacts.StorageKey())
}

func TestFileCacheSaveAndLoad(t *testing.T) {
	fc, err := NewFileCache(t.TempDir(), nil)
	require.Nil(t, err)

	contacts := []models.EmergencyContact{{ID: "c1", Name: "Jane"}, {ID: "c2", Name: "John"}}
	require.Nil(t, fc.Save(EmergencyContacts, contacts))

	loaded := []models.EmergencyContact{}
	fc.Load(EmergencyContacts, &loaded)
	assert.Equal(t, []string{"c1", "c2"}, []string{loaded[0].ID, loaded[1].ID})

	// Last writer wins
	require.Nil(t, fc.Save(EmergencyContacts, contacts[:1]))
	loaded = []models.EmergencyContact{}
	fc.Load(EmergencyContacts, &loaded)
	assert.Len(t, loaded, 1)
}

func TestFileCacheLoadFailsSoft(t *testing.T) {
	dir := t.TempDir()
	fc, err := NewFileCache(dir, nil)
	require.Nil(t, err)

	incidents := []models.Incident{}
	fc.Load(Incidents, &incidents)
	assert.Empty(t, incidents, "missing blob should load as empty")

	err = os.WriteFile(filepath.Join(dir, "rightguard-incidents.json"), []byte("{not json"), 0600)
	require.Nil(t, err)

	fc.Load(Incidents, &incidents)
	assert.Empty(t, incidents, "corrupt blob should load as empty")

	err = os.WriteFile(filepath.Join(dir, "rightguard-incidents.json"), []byte(`[{"id":"a","location":"x"},{"id":5}]`), 0600)
	require.Nil(t, err)

	fc.Load(Incidents, &incidents)
	assert.Empty(t, incidents, "blob with a mistyped entity should load as empty")
}
