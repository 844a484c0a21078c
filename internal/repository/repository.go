// Package repository provides data access interfaces and PostgreSQL
// implementations for the research assistant service.
//
// Repositories accept a DBTX so they work against the connection pool for
// standard operations and against a pgx.Tx when the caller needs atomicity:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    txRepo := repository.NewPgSubmissionRepository(tx)
//	    return txRepo.Create(ctx, submission)
//	})
//
// All methods return domain errors (domain.ErrNotFound on missing rows,
// domain.ValidationError on bad input, domain.TransitionError on illegal
// status changes) and wrap driver errors with context.
package repository

import (
	"github.com/scholarpipe/research-assistant/internal/database"
)

// DBTX is the database interface supporting both pool and transaction
// contexts.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 50
	maxFilterLimit     = 500
)

// applyPaginationDefaults clamps limit to [1, maxFilterLimit] and ensures
// offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
