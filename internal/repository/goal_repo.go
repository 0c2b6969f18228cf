package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "tandem/contracts/mq"
	"tandem/internal/model"
	"tandem/pkg/outbox"
)

type GoalRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewGoalRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const goalColumns = `id, user_id, title, description, color, specific, measurable, achievable,
		       relevant, time_bound, start_date, end_date, reasoning, progress, created_at, updated_at`

func scanGoal(row pgx.Row) (model.Goal, error) {
	var g model.Goal
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&g.Title,
		&g.Description,
		&g.Color,
		&g.Smart.Specific,
		&g.Smart.Measurable,
		&g.Smart.Achievable,
		&g.Smart.Relevant,
		&g.Smart.TimeBound,
		&g.StartDate,
		&g.EndDate,
		&g.Reasoning,
		&g.Progress,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

// ListByUser returns every goal of the user with its tasks, milestones,
// reflections and resources. Children are read with one query per
// collection keyed by the goal ids.
func (r *GoalRepository) ListByUser(ctx context.Context, userID string) ([]model.Goal, error) {
	r.logger.Debug("Listing goals", zap.String("user_id", userID))

	query := `SELECT ` + goalColumns + `
        FROM goals
        WHERE user_id = $1
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list goals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	goals := []model.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			r.logger.Error("Failed to scan goal", zap.Error(err))
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachChildren(ctx, goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// FindByID returns the goal with its children, or model.ErrNotFound when it
// does not exist or belongs to another user.
func (r *GoalRepository) FindByID(ctx context.Context, userID string, id uuid.UUID) (*model.Goal, error) {
	query := `SELECT ` + goalColumns + `
        FROM goals
        WHERE id = $1 AND user_id = $2
    `
	g, err := scanGoal(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		err = notFound(err)
		if err != model.ErrNotFound {
			r.logger.Error("Failed to find goal", zap.String("goal_id", id.String()), zap.Error(err))
		}
		return nil, err
	}

	goals := []model.Goal{g}
	if err := r.attachChildren(ctx, goals); err != nil {
		return nil, err
	}
	return &goals[0], nil
}

func (r *GoalRepository) attachChildren(ctx context.Context, goals []model.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(goals))
	index := make(map[uuid.UUID]*model.Goal, len(goals))
	for i := range goals {
		ids[i] = goals[i].ID
		index[goals[i].ID] = &goals[i]
		goals[i].Tasks = []model.Task{}
		goals[i].Milestones = []model.Milestone{}
		goals[i].Reflections = []model.Reflection{}
		goals[i].Resources = []model.Resource{}
	}

	tasks, err := queryTasks(ctx, r.db, r.logger, `SELECT `+taskColumns+`
        FROM tasks WHERE goal_id = ANY($1) ORDER BY created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	for _, t := range tasks {
		if g, ok := index[*t.GoalID]; ok {
			g.Tasks = append(g.Tasks, t)
		}
	}

	milestones, err := queryMilestones(ctx, r.db, `SELECT `+milestoneColumns+`
        FROM milestones WHERE goal_id = ANY($1) ORDER BY date ASC, created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("load milestones: %w", err)
	}
	for _, m := range milestones {
		if g, ok := index[m.GoalID]; ok {
			g.Milestones = append(g.Milestones, m)
		}
	}

	reflections, err := queryReflections(ctx, r.db, `SELECT `+reflectionColumns+`
        FROM reflections WHERE goal_id = ANY($1) ORDER BY date DESC, created_at DESC`, ids)
	if err != nil {
		return fmt.Errorf("load reflections: %w", err)
	}
	for _, rf := range reflections {
		if g, ok := index[*rf.GoalID]; ok {
			g.Reflections = append(g.Reflections, rf)
		}
	}

	resources, err := queryResources(ctx, r.db, `SELECT `+resourceColumns+`
        FROM resources WHERE goal_id = ANY($1) ORDER BY created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("load resources: %w", err)
	}
	for _, rs := range resources {
		if g, ok := index[*rs.GoalID]; ok {
			g.Resources = append(g.Resources, rs)
		}
	}
	return nil
}

// Create inserts the goal together with its milestones and tasks and records
// a goal.created event, all in one transaction.
func (r *GoalRepository) Create(ctx context.Context, g *model.Goal) error {
	r.logger.Debug("Inserting goal",
		zap.String("user_id", g.UserID),
		zap.String("title", g.Title),
		zap.Int("milestones", len(g.Milestones)),
		zap.Int("tasks", len(g.Tasks)),
	)

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
            INSERT INTO goals (id, user_id, title, description, color, specific, measurable,
                               achievable, relevant, time_bound, start_date, end_date, reasoning, progress)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
            RETURNING created_at, updated_at
        `
		if err := tx.QueryRow(ctx, query,
			g.ID,
			g.UserID,
			g.Title,
			g.Description,
			g.Color,
			g.Smart.Specific,
			g.Smart.Measurable,
			g.Smart.Achievable,
			g.Smart.Relevant,
			g.Smart.TimeBound,
			g.StartDate,
			g.EndDate,
			g.Reasoning,
			g.Progress,
		).Scan(&g.CreatedAt, &g.UpdatedAt); err != nil {
			return fmt.Errorf("insert goal: %w", err)
		}

		for i := range g.Milestones {
			if err := insertMilestone(ctx, tx, &g.Milestones[i]); err != nil {
				return err
			}
		}
		for i := range g.Tasks {
			if err := insertTask(ctx, tx, &g.Tasks[i]); err != nil {
				return err
			}
		}

		return emit(ctx, tx, r.outbox, mqcontracts.AggregateGoal, g.ID.String(), mqcontracts.RoutingGoalCreated,
			mqcontracts.GoalCreatedPayload{
				GoalID:     g.ID.String(),
				UserID:     g.UserID,
				Title:      g.Title,
				Milestones: len(g.Milestones),
				Tasks:      len(g.Tasks),
				CreatedAt:  g.CreatedAt,
				TraceID:    traceID(ctx),
			})
	})
	if err != nil {
		r.logger.Error("Failed to insert goal", zap.Error(err))
		return err
	}

	r.logger.Info("Goal inserted successfully",
		zap.String("id", g.ID.String()),
		zap.String("user_id", g.UserID),
	)
	return nil
}

// Update writes the editable goal fields. Progress is left untouched.
func (r *GoalRepository) Update(ctx context.Context, g *model.Goal) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
            UPDATE goals
            SET title = $3, description = $4, color = $5, specific = $6, measurable = $7,
                achievable = $8, relevant = $9, time_bound = $10, start_date = $11,
                end_date = $12, reasoning = $13, updated_at = NOW()
            WHERE id = $1 AND user_id = $2
            RETURNING updated_at
        `
		if err := tx.QueryRow(ctx, query,
			g.ID,
			g.UserID,
			g.Title,
			g.Description,
			g.Color,
			g.Smart.Specific,
			g.Smart.Measurable,
			g.Smart.Achievable,
			g.Smart.Relevant,
			g.Smart.TimeBound,
			g.StartDate,
			g.EndDate,
			g.Reasoning,
		).Scan(&g.UpdatedAt); err != nil {
			return notFound(err)
		}
		return emitGoalChanged(ctx, tx, r.outbox, g.UserID, &g.ID, "goal_updated")
	})
	if err != nil {
		if err != model.ErrNotFound {
			r.logger.Error("Failed to update goal", zap.String("goal_id", g.ID.String()), zap.Error(err))
		}
		return err
	}

	r.logger.Info("Goal updated", zap.String("id", g.ID.String()))
	return nil
}

// Delete removes the goal; its children go with it via ON DELETE CASCADE.
func (r *GoalRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM goals WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrNotFound
		}
		return emitGoalChanged(ctx, tx, r.outbox, userID, &id, "goal_deleted")
	})
	if err != nil {
		if err != model.ErrNotFound {
			r.logger.Error("Failed to delete goal", zap.String("goal_id", id.String()), zap.Error(err))
		}
		return err
	}

	r.logger.Info("Goal deleted", zap.String("id", id.String()))
	return nil
}

// ownsGoal fails with model.ErrNotFound unless goalID belongs to userID.
func ownsGoal(ctx context.Context, tx pgx.Tx, userID string, goalID uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM goals WHERE id = $1 AND user_id = $2`, goalID, userID).Scan(&one)
	return notFound(err)
}

func emitGoalChanged(ctx context.Context, tx pgx.Tx, repo *outbox.Repository, userID string, goalID *uuid.UUID, action string) error {
	p := mqcontracts.GoalChangedPayload{
		UserID:    userID,
		Action:    action,
		ChangedAt: time.Now().UTC(),
		TraceID:   traceID(ctx),
	}
	aggregateID := userID
	if goalID != nil {
		p.GoalID = goalID.String()
		aggregateID = p.GoalID
	}
	return emit(ctx, tx, repo, mqcontracts.AggregateGoal, aggregateID, mqcontracts.RoutingGoalChanged, p)
}
