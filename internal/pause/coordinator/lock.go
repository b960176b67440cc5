package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// runLock is a best-effort single-runner lease for the daily batch, keyed and
// sized at construction. The structural credit gate on pause windows stays
// the real protection; the lease just avoids two runs burning through the
// same work.
type runLock struct {
	client  *redis.Client
	key     string
	ttl     time.Duration
	release *redis.Script
}

func newRunLock(client *redis.Client, cfg Config) *runLock {
	if client == nil {
		return nil
	}
	cfg = cfg.withDefaults()
	return &runLock{
		client:  client,
		key:     cfg.LockKey,
		ttl:     cfg.LockTTL,
		release: redis.NewScript(lockReleaseScript),
	}
}

// acquire takes the lease for one run. When acquired it returns a release
// function bound to this run's token, so a lease that expired and was taken
// over by a later run is never deleted by the earlier one.
func (l *runLock) acquire(ctx context.Context) (func(context.Context) error, bool, error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("lock client not configured")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	rel := func(ctx context.Context) error {
		return l.release.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return rel, true, nil
}
