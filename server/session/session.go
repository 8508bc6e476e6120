package session

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/alerts"
	"github.com/Daskott/rightguard/server/cache"
	"github.com/Daskott/rightguard/server/contacts"
	"github.com/Daskott/rightguard/server/incidents"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultMaxDeviceSessions = 1000
	DefaultIdleTimeout       = 24 * time.Hour
)

var (
	prefix = colors.Prefix("session")

	deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// ErrInvalidDeviceID is returned for device ids that are not 1-64 letters, digits, '_' or '-'
var ErrInvalidDeviceID = fmt.Errorf("device id must be 1-64 letters, digits, '_' or '-'")

// ValidDeviceID reports whether deviceID can name a demo session
func ValidDeviceID(deviceID string) bool {
	return deviceIDPattern.MatchString(deviceID)
}

// UserStore is the remote store as seen by the session registry
type UserStore interface {
	persistence.RemoteStore
	EnsureUser(userID string) models.Result[models.User]
}

// CacheFactory returns the local cache for a session scope
type CacheFactory func(scope string) (cache.Cache, error)

// FileCaches keeps each scope's cache in its own directory under rootDir
func FileCaches(rootDir string, logg *zap.SugaredLogger) CacheFactory {
	return func(scope string) (cache.Cache, error) {
		if !filepath.IsLocal(scope) || filepath.Base(scope) != scope {
			return nil, fmt.Errorf("invalid cache scope %q", scope)
		}
		return cache.NewFileCache(filepath.Join(rootDir, scope), logg)
	}
}

func RedisCaches(client *redis.Client, logg *zap.SugaredLogger) CacheFactory {
	return func(scope string) (cache.Cache, error) {
		return cache.NewRedisCache(client, scope, logg), nil
	}
}

// Session is everything one signed in user (or one demo device) works with
type Session struct {
	Scope         string
	UserID        string
	Authenticated bool
	Store         *persistence.FallbackStore
	Incidents     *incidents.Manager
	Contacts      *contacts.Manager
	// Warnings collected while loading the session
	Warnings []string
}

type entry struct {
	session  *Session
	cache    cache.Cache
	device   bool
	lastUsed time.Time
}

// Registry builds sessions on first use and keeps them until they sit idle.
// Demo device sessions are capped, the least recently used one is evicted to
// make room and its cache is cleared along with it.
type Registry struct {
	mu                sync.Mutex
	sessions          map[string]*entry
	remote            UserStore
	caches            CacheFactory
	dispatcher        *alerts.Dispatcher
	summarizer        incidents.Summarizer
	maxDeviceSessions int
	idleTimeout       time.Duration
	now               func() time.Time
	logg              *zap.SugaredLogger
}

// NewRegistry returns a registry. remote may be nil, every session is then local only.
func NewRegistry(remote UserStore, caches CacheFactory, dispatcher *alerts.Dispatcher, summarizer incidents.Summarizer, logg *zap.SugaredLogger) *Registry {
	return &Registry{
		sessions:          map[string]*entry{},
		remote:            remote,
		caches:            caches,
		dispatcher:        dispatcher,
		summarizer:        summarizer,
		maxDeviceSessions: DefaultMaxDeviceSessions,
		idleTimeout:       DefaultIdleTimeout,
		now:               time.Now,
		logg:              logger.OrDefault(logg),
	}
}

// LimitSessions overrides how many demo device sessions are kept and how long
// any session may sit idle. Zero values keep the defaults.
func (r *Registry) LimitSessions(maxDeviceSessions int, idleTimeout time.Duration) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if maxDeviceSessions > 0 {
		r.maxDeviceSessions = maxDeviceSessions
	}
	if idleTimeout > 0 {
		r.idleTimeout = idleTimeout
	}
	return r
}

// Len returns how many sessions are open
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// ForUser returns the session of an authenticated user
func (r *Registry) ForUser(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return r.get(ctx, "user-"+userID, userID, r.remote != nil, false)
}

// ForDevice returns the demo session of an unauthenticated device
func (r *Registry) ForDevice(ctx context.Context, deviceID string) (*Session, error) {
	if !ValidDeviceID(deviceID) {
		return nil, ErrInvalidDeviceID
	}
	return r.get(ctx, "device-"+deviceID, models.DemoUserID, false, true)
}

// EvictIdle drops every session unused for longer than the idle timeout and
// returns how many were dropped. Demo device caches are cleared too.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTimeout)
	evicted := 0
	for scope, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			r.evict(scope, e)
			evicted++
		}
	}
	return evicted
}

func (r *Registry) get(ctx context.Context, scope, userID string, authenticated, device bool) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[scope]; ok {
		e.lastUsed = r.now()
		return e.session, nil
	}

	if device {
		r.makeRoomForDevice()
	}

	e, err := r.build(ctx, scope, userID, authenticated)
	if err != nil {
		return nil, err
	}

	e.device = device
	e.lastUsed = r.now()
	r.sessions[scope] = e
	return e.session, nil
}

// makeRoomForDevice evicts the least recently used device sessions until a new one fits
func (r *Registry) makeRoomForDevice() {
	for {
		count := 0
		var oldestScope string
		var oldest *entry

		for scope, e := range r.sessions {
			if !e.device {
				continue
			}
			count++
			if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
				oldestScope, oldest = scope, e
			}
		}

		if count < r.maxDeviceSessions || oldest == nil {
			return
		}
		r.evict(oldestScope, oldest)
	}
}

func (r *Registry) evict(scope string, e *entry) {
	delete(r.sessions, scope)

	if e.device {
		if err := e.cache.Clear(); err != nil {
			r.logg.Warnf("%vunable to clear cache of %v: %v", prefix, scope, err)
		}
	}
	r.logg.Infof("%vevicted idle session %v", prefix, scope)
}

func (r *Registry) build(ctx context.Context, scope, userID string, authenticated bool) (*entry, error) {
	localCache, err := r.caches(scope)
	if err != nil {
		return nil, fmt.Errorf("unable to open cache for %s: %v", scope, err)
	}

	sess := &Session{Scope: scope, UserID: userID, Authenticated: authenticated, Warnings: []string{}}

	var remote persistence.Strategy
	if authenticated {
		remote = persistence.NewRemoteStrategy(r.remote, userID)

		if res := r.remote.EnsureUser(userID); !res.Success() {
			r.logg.Warnf("%vunable to ensure user %v: %v", prefix, userID, res.Err)
			sess.Warnings = append(sess.Warnings, res.Err)
		}
	}

	sess.Store = persistence.NewFallbackStore(remote, persistence.NewLocalStrategy(localCache, r.logg))
	sess.Incidents = incidents.NewManager(sess.Store, r.dispatcher, r.summarizer, userID, r.logg)
	sess.Contacts = contacts.NewManager(sess.Store, r.dispatcher, userID, r.logg)

	loadedContacts := sess.Contacts.Load(ctx)
	sess.Warnings = append(sess.Warnings, loadedContacts.Warnings...)
	sess.Warnings = append(sess.Warnings, loadedContacts.Messages()...)

	loadedIncidents := sess.Incidents.Load(ctx)
	sess.Warnings = append(sess.Warnings, loadedIncidents.Warnings...)
	sess.Warnings = append(sess.Warnings, loadedIncidents.Messages()...)

	r.logg.Infof("%vloaded %v with %v contact(s) & %v incident(s)",
		prefix, scope, len(sess.Contacts.Contacts()), len(sess.Incidents.Incidents()))

	return &entry{session: sess, cache: localCache}, nil
}
