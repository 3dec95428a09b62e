// Package worker turns job messages from the bus into simulation runs.
package worker

import (
	"context"
	"time"

	domain "github.com/turtacn/Massing-Sim/internal/domain/simulation"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/database/redis"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/types/common"
)

const defaultLockTTL = 10 * time.Minute

// Executor runs one job to completion.  simulation.Service implements it.
type Executor interface {
	Execute(ctx context.Context, job domain.Job) (*domain.Run, error)
}

// ActivityTracker counts jobs in flight.
type ActivityTracker interface {
	TrackJob(worker string) func()
}

// Handler claims the run of each job message and executes it.
type Handler struct {
	exec    Executor
	locks   redis.LockFactory
	lockTTL time.Duration
	name    string
	tracker ActivityTracker
	logger  logging.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLocks claims each run with a lease from f before executing it, so a
// redelivered job is not executed by two workers at once.
func WithLocks(f redis.LockFactory, ttl time.Duration) Option {
	return func(h *Handler) {
		h.locks = f
		if ttl > 0 {
			h.lockTTL = ttl
		}
	}
}

func WithTracker(t ActivityTracker) Option {
	return func(h *Handler) { h.tracker = t }
}

// WithName labels the worker in metrics.
func WithName(name string) Option {
	return func(h *Handler) { h.name = name }
}

func NewHandler(exec Executor, logger logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &Handler{exec: exec, lockTTL: defaultLockTTL, name: "worker", logger: logger.Named("worker")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle is a common.MessageHandler.  A returned error makes the consumer
// retry the message and finally dead-letter it.
func (h *Handler) Handle(ctx context.Context, msg *common.Message) error {
	job, env, err := kafka.DecodeJob(msg)
	if err != nil {
		h.logger.Error("undecodable job message",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return err
	}
	if job.RequestID == "" && env != nil {
		job.RequestID = env.RequestID
	}
	if job.RequestID != "" {
		ctx = logging.WithRequestID(ctx, job.RequestID)
	}
	ctx = logging.WithRunID(ctx, job.RunID)
	log := logging.ForContext(ctx, h.logger)

	if h.locks != nil {
		lock := h.locks.NewMutex("run:"+job.RunID,
			redis.WithLockTTL(h.lockTTL),
			redis.WithRetryCount(1),
			redis.WithWatchdog(true))
		ok, err := lock.TryLock(ctx)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("run claimed by another worker, skipping")
			return nil
		}
		defer func() {
			// The job context may already be cancelled on shutdown.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Unlock(unlockCtx); err != nil {
				log.Warn("failed to release run lock", logging.Err(err))
			}
		}()
	}

	if h.tracker != nil {
		done := h.tracker.TrackJob(h.name)
		defer done()
	}

	start := time.Now()
	run, err := h.exec.Execute(ctx, *job)
	if err != nil {
		log.Error("job failed", logging.String(logging.FieldKind, string(job.Kind)), logging.Err(err))
		return err
	}
	log.Info("job finished",
		logging.String(logging.FieldKind, string(job.Kind)),
		logging.String("status", string(run.Status)),
		logging.Duration("duration", time.Since(start)))
	return nil
}

//Personal.AI order the ending
