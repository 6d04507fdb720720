package application

import "context"

// Locker serializes work on a single key, typically an aggregate id.
// The returned release func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// WithLock runs fn while holding the lock for key.
func WithLock(ctx context.Context, locker Locker, key string, fn func(ctx context.Context) error) error {
	release, err := locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx)
}
