// Package store implements the remote persistence behind the coordinator:
// Postgres for accounts, profiles, community stats and rewards, MongoDB for
// scan history and Redis for per-device anonymous balances.
package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Backend combines the Postgres and Mongo stores into the full remote
// surface used by coordinators.
type Backend struct {
	*PostgresStore
	*ScanLog
}

func NewBackend(pg *PostgresStore, scans *ScanLog) *Backend {
	return &Backend{PostgresStore: pg, ScanLog: scans}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
