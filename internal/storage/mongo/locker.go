package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	lock "github.com/square/mongo-lock"

	"x1-token-verifier/internal/storage"
)

// LockerConfig holds Locker tuning.
type LockerConfig struct {
	// PollInterval is the wait between attempts while a key is held elsewhere.
	PollInterval time.Duration
	// TTL bounds how long a lock survives its holder. XLock takes over an
	// expired lock, so TTL must exceed the longest work done under a lock.
	TTL time.Duration
	// PurgeInterval is how often RunPurger deletes expired lock records.
	PurgeInterval time.Duration
	// Owner identifies this process in the lock collection.
	Owner  string
	Logger logrus.FieldLogger
}

// DefaultLockerConfig returns sensible defaults.
func DefaultLockerConfig() LockerConfig {
	host, _ := os.Hostname()
	return LockerConfig{
		PollInterval:  50 * time.Millisecond,
		TTL:           time.Minute,
		PurgeInterval: time.Minute,
		Owner:         host,
		Logger:        logrus.StandardLogger(),
	}
}

// Locker implements storage.Locker on top of square/mongo-lock so that
// report submissions are serialized across replicas.
type Locker struct {
	client *lock.Client
	config LockerConfig
}

// NewLocker creates a Locker over the locks collection.
func NewLocker(db *Database, config LockerConfig) *Locker {
	if config.PollInterval <= 0 {
		config.PollInterval = 50 * time.Millisecond
	}
	if config.PurgeInterval <= 0 {
		config.PurgeInterval = time.Minute
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	return &Locker{
		client: lock.NewClient(db.Collection(CollectionLocks)),
		config: config,
	}
}

var _ storage.Locker = (*Locker)(nil)

// Lock takes an exclusive lock on key, polling until it is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockID := uuid.NewString()
	details := lock.LockDetails{
		Owner: l.config.Owner,
		TTL:   uint(l.config.TTL / time.Second),
	}

	ticker := time.NewTicker(l.config.PollInterval)
	defer ticker.Stop()

	for {
		err := l.client.XLock(ctx, key, lockID, details)
		if err == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, lock.ErrAlreadyLocked) {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// The caller's context may already be cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.client.Unlock(unlockCtx, lockID); err != nil {
			l.config.Logger.WithError(err).WithField("key", key).Warn("[lock] unlock failed")
		}
	}, nil
}

// Purge deletes expired locks left by crashed holders and returns how many
// were removed.
func (l *Locker) Purge(ctx context.Context) (int, error) {
	purged, err := lock.NewPurger(l.client).Purge(ctx)
	if err != nil {
		return len(purged), fmt.Errorf("purge locks: %w", err)
	}
	return len(purged), nil
}

// RunPurger calls Purge every PurgeInterval until ctx is done.
func (l *Locker) RunPurger(ctx context.Context) {
	ticker := time.NewTicker(l.config.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.Purge(ctx)
			if err != nil {
				if ctx.Err() == nil {
					l.config.Logger.WithError(err).Warn("[lock] purge failed")
				}
				continue
			}
			if n > 0 {
				l.config.Logger.WithField("purged", n).Info("[lock] expired locks purged")
			}
		}
	}
}
