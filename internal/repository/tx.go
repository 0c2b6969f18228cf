package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tandem/internal/model"
	"tandem/pkg/outbox"
	"tandem/pkg/trace"
)

// inTx runs fn in a transaction and commits when fn returns nil.
func inTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// notFound maps pgx.ErrNoRows to model.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}

// emit records an outbox event inside tx.
func emit(ctx context.Context, tx pgx.Tx, repo *outbox.Repository, aggregateType, aggregateID, routingKey string, payload any) error {
	if err := outbox.InsertEventInTx(ctx, tx, repo, aggregateType, aggregateID, routingKey, payload); err != nil {
		return fmt.Errorf("outbox %s: %w", routingKey, err)
	}
	return nil
}

func traceID(ctx context.Context) string {
	return trace.FromContext(ctx)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
