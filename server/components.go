package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Daskott/rightguard/server/alertlog"
	"github.com/Daskott/rightguard/server/alerts"
	"github.com/Daskott/rightguard/server/auth"
	"github.com/Daskott/rightguard/server/auth/key"
	"github.com/Daskott/rightguard/server/cache"
	"github.com/Daskott/rightguard/server/channels"
	"github.com/Daskott/rightguard/server/gstorage"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/server/messaging"
	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/server/remote"
	"github.com/Daskott/rightguard/server/session"
	"github.com/Daskott/rightguard/server/work"
	"github.com/Daskott/rightguard/shared"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jwksCacheTTL = 15 * time.Minute

// UserStore is the part of the remote store the user endpoints need
type UserStore interface {
	session.UserStore
	UpdateUserSubscription(userID, status string) models.Result[models.User]
}

// Components holds every long lived dependency of the server & CLI
type Components struct {
	Config     shared.Config
	RootDir    string
	CacheDir   string
	Users      UserStore
	Workers    *work.WorkerPoolAdapter
	Dispatcher *alerts.Dispatcher
	Registry   *session.Registry
	KeyPair    *key.KeyPair
	Keys       auth.KeySource
	Storage    *gstorage.GStorage

	logg    *zap.SugaredLogger
	closers []func() error
}

// NewComponents wires config into the stores, channels & dispatcher. Optional
// backends that fail to start are logged and replaced by their local fallback.
func NewComponents(ctx context.Context, config shared.Config, rootDir string, logg *zap.SugaredLogger) (*Components, error) {
	logg = logger.OrDefault(logg)
	c := &Components{Config: config, RootDir: rootDir, logg: logg}

	c.Workers = work.NewWorkerAdapter(config.RightGuard.Cron.TimeZone, work.MAX_CONCURRENCY)
	c.closers = append(c.closers, c.Workers.Stop)

	if err := c.openRemote(); err != nil {
		logg.Warnf("%vremote store unavailable, running local only: %v", prefix, err)
	}

	caches, err := c.openCaches(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	alertLog, err := alertlog.NewRetrying(c.openAlertLog(ctx), c.Workers, logg)
	if err != nil {
		c.Close()
		return nil, err
	}

	generator := c.openGenerator()

	c.Dispatcher = alerts.NewDispatcher(generator, c.openSenders(), alertLog, alerts.Options{
		Concurrency:    config.Alerts.Concurrency,
		ChannelTimeout: config.Alerts.ChannelTimeout,
		Policy:         alerts.PolicyByName(config.Alerts.Policy),
		Logger:         logg,
	})

	var users session.UserStore
	if c.Users != nil {
		users = c.Users
	}
	c.Registry = session.NewRegistry(users, caches, c.Dispatcher, generator, logg).
		LimitSessions(config.RightGuard.Sessions.MaxDeviceSessions, config.RightGuard.Sessions.IdleTimeout)

	if err := c.openKeys(); err != nil {
		c.Close()
		return nil, err
	}

	if config.Google.Storage.BackupEnabled() {
		c.Storage, err = gstorage.NewGStorage(ctx, config.Google.ApplicationCredentials)
		if err != nil {
			logg.Warnf("%vcache backup disabled: %v", prefix, err)
		} else {
			c.closers = append(c.closers, c.Storage.Close)
		}
	}

	return c, nil
}

// Close releases every open backend, most recently opened first
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logg.Errorf("%vclose: %v", prefix, err)
		}
	}
	c.closers = nil
}

func (c *Components) openRemote() error {
	var dialector gorm.Dialector

	switch c.Config.Remote.Driver {
	case "":
		return nil
	case "postgres":
		dialector = remote.Postgres(c.Config.Remote.DSN)
	case "sqlite":
		dir := c.Config.Remote.Dir
		if dir == "" {
			dir = c.RootDir
		}

		var err error
		dialector, err = remote.Sqlite(c.Config.Remote.PassPhrase, dir)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown remote driver %q", c.Config.Remote.Driver)
	}

	store, err := remote.Open(dialector, c.logg)
	if err != nil {
		return err
	}

	c.Users = store
	c.closers = append(c.closers, store.Close)
	return nil
}

func (c *Components) openCaches(ctx context.Context) (session.CacheFactory, error) {
	if c.Config.Cache.Driver == "redis" {
		client, err := cache.NewRedisClient(ctx, c.Config.Cache.RedisURL)
		if err != nil {
			return nil, err
		}

		c.closers = append(c.closers, client.Close)
		return session.RedisCaches(client, c.logg), nil
	}

	c.CacheDir = c.Config.Cache.Dir
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.RootDir, "cache")
	}
	return session.FileCaches(c.CacheDir, c.logg), nil
}

func (c *Components) openAlertLog(ctx context.Context) alertlog.Log {
	if c.Config.Alerts.LogDSN == "" {
		return alertlog.NewMemoryLog(c.logg)
	}

	pgLog, err := alertlog.NewPostgresLog(ctx, c.Config.Alerts.LogDSN)
	if err == nil {
		err = pgLog.Migrate(ctx)
	}
	if err != nil {
		c.logg.Warnf("%valert log database unavailable, keeping alert history in memory: %v", prefix, err)
		if pgLog != nil {
			pgLog.Close()
		}
		return alertlog.NewMemoryLog(c.logg)
	}

	c.closers = append(c.closers, func() error {
		pgLog.Close()
		return nil
	})
	return pgLog
}

func (c *Components) openSenders() channels.Registry {
	senders := []channels.Sender{}

	if c.Config.Twilio.AccountSid != "" && c.Config.Twilio.AuthToken != "" {
		senders = append(senders, channels.NewSMSSender(c.Config.Twilio))
	} else {
		c.logg.Warnf("%vtwilio is not configured, sms alerts are only logged", prefix)
		senders = append(senders, channels.NewLogSender(models.SMS, c.logg))
	}

	if emailSender, err := channels.NewEmailSender(c.Config.Email); err == nil {
		senders = append(senders, emailSender)
	} else {
		c.logg.Warnf("%v%v, email alerts are only logged", prefix, err)
		senders = append(senders, channels.NewLogSender(models.Email, c.logg))
	}

	if pushSender, err := channels.NewPushSender(c.Config.Push); err == nil {
		senders = append(senders, pushSender)
		c.closers = append(c.closers, pushSender.Close)
	} else {
		c.logg.Warnf("%v%v, push alerts are only logged", prefix, err)
		senders = append(senders, channels.NewLogSender(models.Push, c.logg))
	}

	return channels.NewRegistry(senders...)
}

func (c *Components) openGenerator() messaging.Generator {
	if c.Config.OpenAI.APIKey == "" {
		return messaging.TemplateGenerator{}
	}

	generator, err := messaging.NewOpenAIGenerator(c.Config.OpenAI)
	if err != nil {
		c.logg.Warnf("%vusing template messages: %v", prefix, err)
		return messaging.TemplateGenerator{}
	}
	return generator
}

// openKeys loads the signing key pair if one is configured. Tokens are verified
// against the auth provider's jwks when a url is set, otherwise against the key pair.
func (c *Components) openKeys() error {
	if c.Config.RightGuard.PrivateKeyPem != "" {
		keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(c.Config.RightGuard.PrivateKeyPem)
		if err != nil {
			return err
		}
		c.KeyPair = keyPair
		c.Keys = keyPair
	}

	if c.Config.RightGuard.JWKSURL != "" {
		c.Keys = key.NewRemoteKeySet(c.Config.RightGuard.JWKSURL, jwksCacheTTL)
	}

	if c.Keys == nil {
		c.logg.Warnf("%vno signing key or jwks url configured, only demo sessions are available", prefix)
	}
	return nil
}
