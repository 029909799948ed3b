package lease

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

const releaseTimeout = 5 * time.Second

var (
	// ErrLeaseLost is returned by AcquireAndRun when another holder took the lease mid-run.
	ErrLeaseLost = errors.New("lease: lost while work was running")
	// ErrInvalidTiming is returned when the refresh interval does not fit inside the lease.
	ErrInvalidTiming = errors.New("lease: refresh interval must be positive and shorter than the lease timeout")
)

type ILocker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Renew(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
	AcquireAndRun(ctx context.Context, key string, leaseTimeout, refreshInterval time.Duration, work func(ctx context.Context) error) (bool, error)
}

var _ ILocker = (*Locker)(nil)

// Locker grants time-bounded, token-owned leases on top of a shared key/value store.
type Locker struct {
	store  kv.IKeyValueStore
	logger *logrus.Logger
}

func NewLocker(store kv.IKeyValueStore, logger *logrus.Logger) *Locker {
	return &Locker{store: store, logger: logger}
}

// TryAcquire takes the lease when nobody holds a live one. It never blocks waiting for it.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return "", false, fmt.Errorf("failed to generate lease token: %w", err)
	}

	ok, err := l.store.SetIfAbsent(ctx, key, token.Bytes(), ttl)
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token.String(), true, nil
}

// Renew pushes the lease expiry forward. false means the token no longer owns the lease.
func (l *Locker) Renew(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	value, err := tokenBytes(token)
	if err != nil {
		return false, err
	}
	ok, err := l.store.CompareAndExpire(ctx, key, value, ttl)
	if err != nil {
		return false, fmt.Errorf("failed to renew lease %s: %w", key, err)
	}
	return ok, nil
}

// Release frees the lease when token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	value, err := tokenBytes(token)
	if err != nil {
		return err
	}
	ok, err := l.store.CompareAndDelete(ctx, key, value)
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("release lease %s: %w", key, ErrLeaseLost)
	}
	return nil
}

// AcquireAndRun runs work only if the lease on key could be taken. While work runs the
// lease is renewed every refreshInterval; losing it cancels work's context. The lease is
// released once work returns, even when it panics.
//
// The returned bool reports whether work ran. A store failure while acquiring is treated
// as the lease being held: work does not run and the error is returned.
func (l *Locker) AcquireAndRun(
	ctx context.Context,
	key string,
	leaseTimeout, refreshInterval time.Duration,
	work func(ctx context.Context) error,
) (bool, error) {
	if refreshInterval <= 0 || refreshInterval >= leaseTimeout {
		return false, ErrInvalidTiming
	}

	// Taken before the store call so the local view of expiry is never later than the store's.
	acquiredAt := time.Now()
	token, acquired, err := l.TryAcquire(ctx, key, leaseTimeout)
	if err != nil {
		l.logger.WithError(err).WithField("key", key).Warn("Lease.AcquireAndRun.acquireFailed")
		return false, err
	}
	if !acquired {
		l.logger.WithField("key", key).Debug("Lease.AcquireAndRun.held")
		return false, nil
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lost atomic.Bool
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		l.refresh(workCtx, done, key, token, acquiredAt, leaseTimeout, refreshInterval, func() {
			lost.Store(true)
			cancel()
		})
	}()

	defer func() {
		close(done)
		<-stopped

		releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer releaseCancel()
		if err := l.Release(releaseCtx, key, token); err != nil {
			l.logger.WithError(err).WithField("key", key).Warn("Lease.AcquireAndRun.releaseFailed")
		}
	}()

	err = work(workCtx)
	if lost.Load() {
		return true, errors.Join(ErrLeaseLost, err)
	}
	return true, err
}

// refresh renews the lease every refreshInterval until done is closed. The lease counts as
// lost when the store reports another owner, or when renewals keep failing and the next
// attempt would land after the last confirmed expiry.
func (l *Locker) refresh(
	ctx context.Context,
	done <-chan struct{},
	key, token string,
	lastRenewed time.Time,
	leaseTimeout, refreshInterval time.Duration,
	onLost func(),
) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			attempt := time.Now()
			renewCtx, cancel := context.WithTimeout(ctx, refreshInterval)
			ok, err := l.Renew(renewCtx, key, token, leaseTimeout)
			cancel()
			if err != nil {
				entry := l.logger.WithError(err).WithFields(logrus.Fields{
					"key":          key,
					"sinceRenew":   time.Since(lastRenewed).String(),
					"leaseTimeout": leaseTimeout.String(),
				})
				if time.Since(lastRenewed)+refreshInterval >= leaseTimeout {
					entry.Error("Lease.Refresh.expired")
					onLost()
					return
				}
				entry.Warn("Lease.Refresh.renewFailed")
				continue
			}
			if !ok {
				l.logger.WithField("key", key).Error("Lease.Refresh.lost")
				onLost()
				return
			}
			lastRenewed = attempt
		}
	}
}

func tokenBytes(token string) ([]byte, error) {
	id, err := uuid.FromString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid lease token: %w", err)
	}
	return id.Bytes(), nil
}
