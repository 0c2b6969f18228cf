package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/pkg/outbox"
)

// JournalRepository stores reflections and resources.
type JournalRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewJournalRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *JournalRepository {
	return &JournalRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const (
	reflectionColumns = `id, user_id, goal_id, date, content, created_at`
	resourceColumns   = `id, user_id, goal_id, title, url, created_at`
)

func queryReflections(ctx context.Context, q querier, sql string, args ...any) ([]model.Reflection, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reflection{}
	for rows.Next() {
		var rf model.Reflection
		if err := rows.Scan(&rf.ID, &rf.UserID, &rf.GoalID, &rf.Date, &rf.Content, &rf.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, rows.Err()
}

func queryResources(ctx context.Context, q querier, sql string, args ...any) ([]model.Resource, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Resource{}
	for rows.Next() {
		var rs model.Resource
		if err := rows.Scan(&rs.ID, &rs.UserID, &rs.GoalID, &rs.Title, &rs.URL, &rs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// ListGeneralReflections returns the reflections not tied to any goal.
func (r *JournalRepository) ListGeneralReflections(ctx context.Context, userID string) ([]model.Reflection, error) {
	return queryReflections(ctx, r.db, `SELECT `+reflectionColumns+`
        FROM reflections WHERE user_id = $1 AND goal_id IS NULL
        ORDER BY date DESC, created_at DESC`, userID)
}

func (r *JournalRepository) InsertReflection(ctx context.Context, rf *model.Reflection) error {
	r.logger.Debug("Inserting reflection", zap.String("user_id", rf.UserID))

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if rf.GoalID != nil {
			if err := ownsGoal(ctx, tx, rf.UserID, *rf.GoalID); err != nil {
				return err
			}
		}
		if err := tx.QueryRow(ctx, `
            INSERT INTO reflections (id, user_id, goal_id, date, content)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING created_at`,
			rf.ID, rf.UserID, rf.GoalID, rf.Date, rf.Content,
		).Scan(&rf.CreatedAt); err != nil {
			return fmt.Errorf("insert reflection: %w", err)
		}
		return emitGoalChanged(ctx, tx, r.outbox, rf.UserID, rf.GoalID, "reflection_created")
	})
	if err != nil {
		if err != model.ErrNotFound {
			r.logger.Error("Failed to insert reflection", zap.Error(err))
		}
		return err
	}
	r.logger.Info("Reflection inserted", zap.String("id", rf.ID.String()))
	return nil
}

func (r *JournalRepository) DeleteReflection(ctx context.Context, userID string, id uuid.UUID) error {
	return r.deleteOwned(ctx, "reflections", "reflection_deleted", userID, id)
}

func (r *JournalRepository) InsertResource(ctx context.Context, rs *model.Resource) error {
	r.logger.Debug("Inserting resource", zap.String("user_id", rs.UserID), zap.String("url", rs.URL))

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if rs.GoalID != nil {
			if err := ownsGoal(ctx, tx, rs.UserID, *rs.GoalID); err != nil {
				return err
			}
		}
		if err := tx.QueryRow(ctx, `
            INSERT INTO resources (id, user_id, goal_id, title, url)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING created_at`,
			rs.ID, rs.UserID, rs.GoalID, rs.Title, rs.URL,
		).Scan(&rs.CreatedAt); err != nil {
			return fmt.Errorf("insert resource: %w", err)
		}
		return emitGoalChanged(ctx, tx, r.outbox, rs.UserID, rs.GoalID, "resource_created")
	})
	if err != nil {
		if err != model.ErrNotFound {
			r.logger.Error("Failed to insert resource", zap.Error(err))
		}
		return err
	}
	r.logger.Info("Resource inserted", zap.String("id", rs.ID.String()))
	return nil
}

func (r *JournalRepository) DeleteResource(ctx context.Context, userID string, id uuid.UUID) error {
	return r.deleteOwned(ctx, "resources", "resource_deleted", userID, id)
}

// deleteOwned deletes a row of table owned by userID. table is always a
// package constant, never caller input.
func (r *JournalRepository) deleteOwned(ctx context.Context, table, action, userID string, id uuid.UUID) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var goalID *uuid.UUID
		err := tx.QueryRow(ctx, `DELETE FROM `+table+` WHERE id = $1 AND user_id = $2 RETURNING goal_id`,
			id, userID).Scan(&goalID)
		if err != nil {
			return notFound(err)
		}
		return emitGoalChanged(ctx, tx, r.outbox, userID, goalID, action)
	})
	if err != nil && err != model.ErrNotFound {
		r.logger.Error("Failed to delete row", zap.String("table", table), zap.String("id", id.String()), zap.Error(err))
	}
	return err
}
