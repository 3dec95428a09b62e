package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeRunAlreadyClaimed, "lock is held by another owner")
	ErrLockNotHeld     = errors.New(errors.ErrCodeConflict, "lock not held by this owner")
)

// DistributedLock is a single-owner lease on a key.  The worker takes one per
// run id so a redelivered job is not executed twice.
type DistributedLock interface {
	Lock(ctx context.Context) error
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

// LockFactory creates locks sharing one client.
type LockFactory interface {
	NewMutex(name string, opts ...LockOption) DistributedLock
}

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetryDelay(d time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = d }
}

func WithRetryCount(n int) LockOption {
	return func(c *lockConfig) { c.retryCount = n }
}

// WithWatchdog keeps extending the lease every ttl/3 until Unlock.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdog = enabled }
}

type lockConfig struct {
	ttl        time.Duration
	retryDelay time.Duration
	retryCount int
	watchdog   bool
}

type redisLockFactory struct {
	client *Client
	log    logging.Logger
}

func NewLockFactory(client *Client, log logging.Logger) LockFactory {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &redisLockFactory{client: client, log: log}
}

func (f *redisLockFactory) NewMutex(name string, opts ...LockOption) DistributedLock {
	cfg := lockConfig{
		ttl:        30 * time.Second,
		retryDelay: 100 * time.Millisecond,
		retryCount: 30,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.retryCount < 1 {
		cfg.retryCount = 1
	}
	return &redisMutex{
		client: f.client,
		key:    f.client.Key("lock", name),
		value:  uuid.NewString(),
		cfg:    cfg,
		logger: f.log.With(logging.String("lock", name)),
	}
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

type redisMutex struct {
	client *Client
	key    string
	value  string
	cfg    lockConfig
	logger logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (m *redisMutex) Lock(ctx context.Context) error {
	for i := 0; i < m.cfg.retryCount; i++ {
		ok, err := m.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.retryDelay):
		}
	}
	return ErrLockNotAcquired
}

func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.Underlying().SetNX(ctx, m.key, m.value, m.cfg.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "acquire lock")
	}
	if ok && m.cfg.watchdog {
		m.startWatchdog()
	}
	return ok, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	n, err := unlockScript.Run(ctx, m.client.Underlying(), []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "release lock")
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (m *redisMutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, m.client.Underlying(), []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "extend lock")
	}
	return n == 1, nil
}

func (m *redisMutex) TTL(ctx context.Context) (time.Duration, error) {
	return m.client.Underlying().PTTL(ctx, m.key).Result()
}

func (m *redisMutex) startWatchdog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	interval := m.cfg.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}
	go m.watch(ctx, interval, m.done)
}

func (m *redisMutex) stopWatchdog() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *redisMutex) watch(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ok, err := m.Extend(ctx, m.cfg.ttl)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.Error("watchdog failed to extend lock", logging.Err(err))
				}
				return
			}
			if !ok {
				m.logger.Warn("watchdog lost lock")
				return
			}
		}
	}
}

//Personal.AI order the ending
