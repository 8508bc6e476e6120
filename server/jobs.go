package server

import (
	"context"
	"fmt"
	"time"

	"github.com/Daskott/rightguard/server/work"
	"github.com/Daskott/rightguard/utils"
)

const (
	backupCacheJob       = "backupCache"
	evictIdleSessionsJob = "evictIdleSessions"

	defaultEvictionSchedule = "0 * * * *"
	storageTimeout          = 50 * time.Second
)

// backupCache uploads the local cache directory to google storage
func backupCache(ctx context.Context, components *Components) error {
	if components.Storage == nil || components.CacheDir == "" {
		return nil
	}

	storageConfig := components.Config.Google.Storage
	uploaded, err := components.Storage.BackupDir(ctx, storageConfig.Bucket, storageConfig.Prefix, components.CacheDir)
	if err != nil {
		return fmt.Errorf("backupCache: %v", err)
	}

	logg.Infof("%vbacked up %v cache file(s) to %v/%v", prefix, len(uploaded), storageConfig.Bucket, storageConfig.Prefix)
	return nil
}

// restoreCache pulls the cache directory from google storage when it is empty locally
func restoreCache(ctx context.Context, components *Components) {
	if components.Storage == nil || components.CacheDir == "" || !utils.DirIsEmpty(components.CacheDir) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	storageConfig := components.Config.Google.Storage
	restored, err := components.Storage.RestoreDir(ctx, storageConfig.Bucket, storageConfig.Prefix, components.CacheDir)
	if err != nil {
		logg.Errorf("%vunable to restore cache: %v", prefix, err)
		return
	}

	logg.Infof("%vrestored %v cache file(s) from %v/%v", prefix, len(restored), storageConfig.Bucket, storageConfig.Prefix)
}

func registerJobHandlers(components *Components) error {
	err := components.Workers.Register(backupCacheJob, func(map[string]interface{}) error {
		ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
		defer cancel()

		return backupCache(ctx, components)
	})
	if err != nil {
		return err
	}

	return components.Workers.Register(evictIdleSessionsJob, func(map[string]interface{}) error {
		evicted := components.Registry.EvictIdle()
		logg.Infof("%vevicted %v idle session(s)", prefix, evicted)
		return nil
	})
}

// periodicJobs maps each job enqueueJobs schedules to its cron expression
func periodicJobs(components *Components) map[string]string {
	schedule := components.Config.RightGuard.Sessions.EvictionSchedule
	if schedule == "" {
		schedule = defaultEvictionSchedule
	}

	jobs := map[string]string{evictIdleSessionsJob: schedule}
	if components.Storage != nil && components.CacheDir != "" {
		jobs[backupCacheJob] = components.Config.Google.Storage.CacheBackupSchedule
	}
	return jobs
}

func enqueueJobs(components *Components) error {
	for name, schedule := range periodicJobs(components) {
		err := components.Workers.PeriodicallyPerform(schedule, work.JobParams{
			Name:    name,
			Handler: name,
			Unique:  true,
			Args:    map[string]interface{}{},
		})
		if err != nil {
			return fmt.Errorf("unable to schedule %v: %v", name, err)
		}
	}
	return nil
}

// stopPeriodicJobs unschedules every periodic job so none starts during shutdown
func stopPeriodicJobs(components *Components) {
	for name := range periodicJobs(components) {
		if err := components.Workers.RemovePeriodicJob(name); err != nil {
			logg.Warnf("%vunable to unschedule %v: %v", prefix, name, err)
		}
	}
}

// jobStatuses returns the last known status of every periodic job
func jobStatuses(components *Components) map[string]string {
	statuses := map[string]string{}
	for name := range periodicJobs(components) {
		statuses[name] = components.Workers.Status(name)
	}
	return statuses
}
