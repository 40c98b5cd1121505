// Package db holds the schema, the generated queries and the transaction helpers around them.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-resto/internal/db/gen"
)

// TxRunner executes fn with queries bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q gen.Querier) error) error
}

// PoolTx runs transactions on a pgx pool.
type PoolTx struct {
	Pool    *pgxpool.Pool
	Queries *gen.Queries
}

// InTx implements TxRunner.
func (p PoolTx) InTx(ctx context.Context, fn func(q gen.Querier) error) error {
	if p.Pool == nil || p.Queries == nil {
		return errors.New("db: transaction runner not configured")
	}
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(p.Queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Direct runs fn against Q without opening a transaction. Tests use it with in-memory fakes.
type Direct struct {
	Q gen.Querier
}

// InTx implements TxRunner.
func (d Direct) InTx(_ context.Context, fn func(q gen.Querier) error) error {
	return fn(d.Q)
}

// IsUniqueViolation reports whether err is a Postgres unique_violation, optionally on a named constraint.
func IsUniqueViolation(err error, constraint ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}
