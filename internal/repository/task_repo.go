package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tandem/internal/model"
	"tandem/pkg/outbox"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const taskColumns = `id, user_id, goal_id, title, completed, kind, weekday, due_date, tag, created_at`

// taskRow is the untyped shape of a tasks row before validation.
type taskRow struct {
	ID        uuid.UUID
	UserID    string
	GoalID    *uuid.UUID
	Title     string
	Completed bool
	Kind      string
	Weekday   *int16
	DueDate   *time.Time
	Tag       string
	CreatedAt time.Time
}

func (row taskRow) toTask() (model.Task, error) {
	kind, err := model.ParseTaskKind(row.Kind)
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{
		ID:        row.ID,
		UserID:    row.UserID,
		GoalID:    row.GoalID,
		Title:     row.Title,
		Completed: row.Completed,
		Kind:      kind,
		Date:      row.DueDate,
		Tag:       row.Tag,
		CreatedAt: row.CreatedAt,
	}
	if row.Weekday != nil {
		wd := time.Weekday(*row.Weekday)
		t.Weekday = &wd
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func scanTaskRow(row pgx.Row) (taskRow, error) {
	var tr taskRow
	err := row.Scan(
		&tr.ID,
		&tr.UserID,
		&tr.GoalID,
		&tr.Title,
		&tr.Completed,
		&tr.Kind,
		&tr.Weekday,
		&tr.DueDate,
		&tr.Tag,
		&tr.CreatedAt,
	)
	return tr, err
}

// queryTasks runs a task query and validates each row. Malformed rows are
// logged and skipped so one bad row does not hide the rest.
func queryTasks(ctx context.Context, q querier, logger *zap.Logger, sql string, args ...any) ([]model.Task, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		tr, err := scanTaskRow(rows)
		if err != nil {
			logger.Error("Failed to scan task", zap.Error(err))
			return nil, err
		}
		t, err := tr.toTask()
		if err != nil {
			logger.Warn("Skipping malformed task row",
				zap.String("task_id", tr.ID.String()),
				zap.String("kind", tr.Kind),
				zap.Error(err),
			)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func weekdayParam(t *model.Task) *int16 {
	if t.Weekday == nil {
		return nil
	}
	wd := int16(*t.Weekday)
	return &wd
}

func insertTask(ctx context.Context, tx pgx.Tx, t *model.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	query := `
        INSERT INTO tasks (id, user_id, goal_id, title, completed, kind, weekday, due_date, tag)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at
    `
	if err := tx.QueryRow(ctx, query,
		t.ID,
		t.UserID,
		t.GoalID,
		t.Title,
		t.Completed,
		string(t.Kind),
		weekdayParam(t),
		t.Date,
		t.Tag,
	).Scan(&t.CreatedAt); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// ListByUser returns all well-formed tasks of the user, general and goal-bound.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	r.logger.Debug("Listing tasks", zap.String("user_id", userID))
	return queryTasks(ctx, r.db, r.logger, `SELECT `+taskColumns+`
        FROM tasks WHERE user_id = $1 ORDER BY created_at ASC`, userID)
}

// Insert validates and stores the task. A goal-bound task must reference a
// goal owned by the same user.
func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.String("user_id", t.UserID),
		zap.String("title", t.Title),
		zap.String("kind", string(t.Kind)),
	)

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if t.GoalID != nil {
			if err := ownsGoal(ctx, tx, t.UserID, *t.GoalID); err != nil {
				return err
			}
		}
		if err := insertTask(ctx, tx, t); err != nil {
			return err
		}
		return emitGoalChanged(ctx, tx, r.outbox, t.UserID, t.GoalID, "task_created")
	})
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return err
	}

	r.logger.Info("Task inserted successfully",
		zap.String("id", t.ID.String()),
		zap.String("user_id", t.UserID),
	)
	return nil
}

// Toggle flips the task's completion in the row itself and returns the
// stored result.
func (r *TaskRepository) Toggle(ctx context.Context, userID string, id uuid.UUID) (*model.Task, error) {
	var t model.Task
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tr, err := scanTaskRow(tx.QueryRow(ctx, `
            UPDATE tasks SET completed = NOT completed
            WHERE id = $1 AND user_id = $2
            RETURNING `+taskColumns, id, userID))
		if err != nil {
			return notFound(err)
		}
		if t, err = tr.toTask(); err != nil {
			return err
		}
		return emitGoalChanged(ctx, tx, r.outbox, userID, t.GoalID, "task_toggled")
	})
	if err != nil {
		if err != model.ErrNotFound {
			r.logger.Error("Failed to toggle task", zap.String("task_id", id.String()), zap.Error(err))
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var goalID *uuid.UUID
		err := tx.QueryRow(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2 RETURNING goal_id`,
			id, userID).Scan(&goalID)
		if err != nil {
			return notFound(err)
		}
		return emitGoalChanged(ctx, tx, r.outbox, userID, goalID, "task_deleted")
	})
	if err != nil && err != model.ErrNotFound {
		r.logger.Error("Failed to delete task", zap.String("task_id", id.String()), zap.Error(err))
	}
	return err
}
