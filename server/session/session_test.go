package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Daskott/rightguard/server/alerts"
	"github.com/Daskott/rightguard/server/cache"
	"github.com/Daskott/rightguard/server/channels"
	"github.com/Daskott/rightguard/server/messaging"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, remote UserStore) *Registry {
	return newRegistryIn(t, t.TempDir(), remote)
}

func newRegistryIn(t *testing.T, dir string, remote UserStore) *Registry {
	senders := channels.NewRegistry(channels.NewLogSender(models.SMS, nil), channels.NewLogSender(models.Email, nil))
	dispatcher := alerts.NewDispatcher(messaging.TemplateGenerator{}, senders, nil, alerts.Options{})
	return NewRegistry(remote, FileCaches(dir, nil), dispatcher, messaging.TemplateGenerator{}, nil)
}

// fakeClock lets tests move a registry through time
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func withClock(registry *Registry) *fakeClock {
	clock := &fakeClock{current: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	registry.now = clock.now
	return clock
}

func addContact(t *testing.T, sess *Session) {
	res := sess.Contacts.AddContact(context.Background(), models.ContactInput{
		Name: "Jane", Phone: "555-123-4567", Email: "jane@example.com", Relationship: "Sister",
	})
	require.True(t, res.Success())
}

func TestForUserBuildsSessionOnce(t *testing.T) {
	remote := &persistence.RemoteStoreStub{}
	registry := newRegistry(t, remote)

	first, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)
	second, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)

	assert.Same(t, first, second)
	assert.True(t, first.Authenticated)
	assert.Equal(t, 1, remote.CallCount("EnsureUser"))
	assert.Empty(t, first.Warnings)
}

func TestForUserWithoutRemoteIsLocalOnly(t *testing.T) {
	registry := newRegistry(t, nil)

	sess, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)

	assert.False(t, sess.Authenticated)
	assert.False(t, sess.Store.Authenticated())
}

func TestForUserWithUnavailableRemote(t *testing.T) {
	remote := &persistence.RemoteStoreStub{}
	remote.Unavailable = true
	registry := newRegistry(t, remote)

	sess, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)

	assert.True(t, sess.Authenticated)
	assert.Len(t, sess.Warnings, 3, "ensure user, contacts & incidents should each warn")
}

func TestForDeviceIsDemo(t *testing.T) {
	registry := newRegistry(t, &persistence.RemoteStoreStub{})

	sess, err := registry.ForDevice(context.Background(), "phone-1")
	require.Nil(t, err)
	assert.False(t, sess.Authenticated)
	assert.Equal(t, models.DemoUserID, sess.UserID)

	res := sess.Contacts.AddContact(context.Background(), models.ContactInput{
		Name: "Jane", Phone: "555-123-4567", Email: "jane@example.com", Relationship: "Sister",
	})
	require.True(t, res.Success())

	other, err := registry.ForDevice(context.Background(), "phone-2")
	require.Nil(t, err)
	assert.Empty(t, other.Contacts.Contacts(), "devices should not share contacts")

	_, err = registry.ForDevice(context.Background(), "")
	assert.NotNil(t, err)
}

func TestFileCachesAreScoped(t *testing.T) {
	dir := t.TempDir()
	caches := FileCaches(dir, nil)

	a, err := caches("a")
	require.Nil(t, err)
	b, err := caches("b")
	require.Nil(t, err)

	require.Nil(t, a.Save(cache.EmergencyContacts, []models.EmergencyContact{{ID: "c1"}}))

	loaded := []models.EmergencyContact{}
	b.Load(cache.EmergencyContacts, &loaded)
	assert.Empty(t, loaded)
}

func TestForDeviceRejectsInvalidIDs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sessions")
	registry := newRegistryIn(t, root, nil)

	tests := []struct {
		name     string
		deviceID string
	}{
		{name: "empty", deviceID: ""},
		{name: "parent traversal", deviceID: "x/../../../escaped"},
		{name: "dot dot", deviceID: ".."},
		{name: "slash", deviceID: "a/b"},
		{name: "backslash", deviceID: `a\b`},
		{name: "space", deviceID: "my phone"},
		{name: "too long", deviceID: strings.Repeat("a", 65)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.ForDevice(context.Background(), tc.deviceID)
			assert.ErrorIs(t, err, ErrInvalidDeviceID)
		})
	}

	assert.Equal(t, 0, registry.Len())
	_, err := os.Stat(filepath.Join(filepath.Dir(root), "escaped"))
	assert.True(t, os.IsNotExist(err), "nothing should be written outside the cache root")
}

func TestForDeviceAcceptsValidIDs(t *testing.T) {
	registry := newRegistry(t, nil)

	for _, deviceID := range []string{"phone-1", "A_b-9", "local"} {
		_, err := registry.ForDevice(context.Background(), deviceID)
		assert.Nil(t, err, deviceID)
	}
	assert.Equal(t, 3, registry.Len())
}

func TestFileCachesRejectUnsafeScopes(t *testing.T) {
	caches := FileCaches(t.TempDir(), nil)

	for _, scope := range []string{"user-../../etc", "../x", "a/b", "", "/abs"} {
		_, err := caches(scope)
		assert.NotNil(t, err, scope)
	}
}

func TestForDeviceEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	root := t.TempDir()
	registry := newRegistryIn(t, root, nil).LimitSessions(2, time.Hour)
	clock := withClock(registry)

	first, err := registry.ForDevice(context.Background(), "phone-1")
	require.Nil(t, err)
	addContact(t, first)

	clock.advance(time.Minute)
	_, err = registry.ForDevice(context.Background(), "phone-2")
	require.Nil(t, err)

	// phone-2 is now the least recently used
	clock.advance(time.Minute)
	_, err = registry.ForDevice(context.Background(), "phone-1")
	require.Nil(t, err)

	clock.advance(time.Minute)
	_, err = registry.ForDevice(context.Background(), "phone-3")
	require.Nil(t, err)

	assert.Equal(t, 2, registry.Len())
	_, err = os.Stat(filepath.Join(root, "device-phone-2"))
	assert.True(t, os.IsNotExist(err), "evicted demo cache should be cleared")

	again, err := registry.ForDevice(context.Background(), "phone-1")
	require.Nil(t, err)
	assert.Same(t, first, again)
	assert.Len(t, again.Contacts.Contacts(), 1)
}

func TestDeviceCapDoesNotEvictUsers(t *testing.T) {
	registry := newRegistry(t, nil).LimitSessions(1, time.Hour)
	withClock(registry)

	user, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)
	_, err = registry.ForDevice(context.Background(), "phone-1")
	require.Nil(t, err)
	_, err = registry.ForDevice(context.Background(), "phone-2")
	require.Nil(t, err)

	assert.Equal(t, 2, registry.Len())
	again, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)
	assert.Same(t, user, again)
}

func TestEvictIdle(t *testing.T) {
	root := t.TempDir()
	registry := newRegistryIn(t, root, nil).LimitSessions(10, time.Hour)
	clock := withClock(registry)

	device, err := registry.ForDevice(context.Background(), "phone-1")
	require.Nil(t, err)
	addContact(t, device)

	user, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)
	addContact(t, user)

	clock.advance(30 * time.Minute)
	_, err = registry.ForDevice(context.Background(), "phone-2")
	require.Nil(t, err)

	clock.advance(45 * time.Minute)
	assert.Equal(t, 2, registry.EvictIdle())
	assert.Equal(t, 1, registry.Len())

	_, err = os.Stat(filepath.Join(root, "device-phone-1"))
	assert.True(t, os.IsNotExist(err), "idle demo cache should be cleared")

	reloaded, err := registry.ForUser(context.Background(), "u1")
	require.Nil(t, err)
	assert.NotSame(t, user, reloaded)
	assert.Len(t, reloaded.Contacts.Contacts(), 1, "user data should survive eviction")

	assert.Equal(t, 0, registry.EvictIdle())
}
