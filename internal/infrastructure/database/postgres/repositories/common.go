// Package repositories implements domain repositories on the pgx pool.
package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QueryRecorder observes query latency.  prometheus.AppMetrics implements it.
type QueryRecorder interface {
	RecordDBQuery(operation string, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordDBQuery(string, time.Duration, error) {}

//Personal.AI order the ending
