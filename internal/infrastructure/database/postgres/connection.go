// Package postgres manages the run-history database: the pgx connection pool
// used by repositories and golang-migrate schema management.
package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

// Connection owns a pgx pool.
type Connection struct {
	pool   *pgxpool.Pool
	logger logging.Logger
	once   sync.Once
}

// poolConfig turns the database section into a pgxpool configuration.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "invalid database configuration")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "massing-sim"
	return pc, nil
}

// NewConnection opens the pool and pings the server once.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create connection pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("connected to postgres",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.DBName),
		logging.Int("max_conns", int(pc.MaxConns)),
	)
	return &Connection{pool: pool, logger: log}, nil
}

func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// HealthCheck pings the server and warns when most connections are busy.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	st := c.pool.Stat()
	if st.MaxConns() > 0 {
		usage := float64(st.AcquiredConns()) / float64(st.MaxConns())
		if usage > 0.8 {
			c.logger.Warn("high database pool usage",
				logging.Int("acquired", int(st.AcquiredConns())),
				logging.Int("max", int(st.MaxConns())),
				logging.Float64("usage", usage))
		}
	}
	return nil
}

func (c *Connection) Close() {
	c.once.Do(func() {
		c.pool.Close()
		c.logger.Info("postgres pool closed")
	})
}

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Tx.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTransaction runs fn inside a transaction, committing on nil and rolling
// back on error or panic.  Passing a pgx.Tx as db opens a savepoint.
func WithTransaction(ctx context.Context, db TxBeginner, fn func(tx pgx.Tx, ctx context.Context) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx, ctx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "commit transaction")
	}
	return nil
}

//Personal.AI order the ending
