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

type MilestoneOp int

const (
	MilestoneInsert MilestoneOp = iota
	MilestoneToggle
	MilestoneDelete
)

func (op MilestoneOp) String() string {
	switch op {
	case MilestoneInsert:
		return "insert"
	case MilestoneToggle:
		return "toggle"
	case MilestoneDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ProgressChange is the outcome of a milestone write.
type ProgressChange struct {
	GoalID    uuid.UUID
	Milestone model.Milestone
	Previous  int
	Progress  int
}

type MilestoneRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const milestoneColumns = `id, goal_id, title, date, completed, created_at`

func scanMilestone(row pgx.Row) (model.Milestone, error) {
	var m model.Milestone
	err := row.Scan(&m.ID, &m.GoalID, &m.Title, &m.Date, &m.Completed, &m.CreatedAt)
	return m, err
}

func queryMilestones(ctx context.Context, q querier, sql string, args ...any) ([]model.Milestone, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	milestones := []model.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func insertMilestone(ctx context.Context, tx pgx.Tx, m *model.Milestone) error {
	query := `
        INSERT INTO milestones (id, goal_id, title, date, completed)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `
	if err := tx.QueryRow(ctx, query, m.ID, m.GoalID, m.Title, m.Date, m.Completed).Scan(&m.CreatedAt); err != nil {
		return fmt.Errorf("insert milestone: %w", err)
	}
	return nil
}

// Apply performs one milestone write, recomputes the owning goal's progress
// from the resulting milestone set and stores it, and records a
// goal.progress_changed event. The goal row is locked for the duration and a
// toggle flips the stored value, so two toggles on the same goal always
// cancel out.
func (r *MilestoneRepository) Apply(
	ctx context.Context,
	userID string,
	op MilestoneOp,
	m model.Milestone,
	recompute func([]model.Milestone) int,
) (ProgressChange, error) {
	r.logger.Debug("Applying milestone change",
		zap.String("user_id", userID),
		zap.String("op", op.String()),
		zap.String("milestone_id", m.ID.String()),
	)

	var change ProgressChange
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		goalID := m.GoalID
		if op != MilestoneInsert {
			err := tx.QueryRow(ctx, `
                SELECT m.goal_id FROM milestones m
                JOIN goals g ON g.id = m.goal_id
                WHERE m.id = $1 AND g.user_id = $2`, m.ID, userID).Scan(&goalID)
			if err != nil {
				return notFound(err)
			}
		}

		var previous int
		err := tx.QueryRow(ctx, `SELECT progress FROM goals WHERE id = $1 AND user_id = $2 FOR UPDATE`,
			goalID, userID).Scan(&previous)
		if err != nil {
			return notFound(err)
		}

		switch op {
		case MilestoneInsert:
			if err := insertMilestone(ctx, tx, &m); err != nil {
				return err
			}
		case MilestoneToggle:
			m, err = scanMilestone(tx.QueryRow(ctx, `
                UPDATE milestones SET completed = NOT completed
                WHERE id = $1
                RETURNING `+milestoneColumns, m.ID))
			if err != nil {
				return notFound(err)
			}
		case MilestoneDelete:
			m, err = scanMilestone(tx.QueryRow(ctx, `DELETE FROM milestones WHERE id = $1 RETURNING `+milestoneColumns, m.ID))
			if err != nil {
				return notFound(err)
			}
		default:
			return fmt.Errorf("unknown milestone op %d", op)
		}

		remaining, err := queryMilestones(ctx, tx, `SELECT `+milestoneColumns+`
            FROM milestones WHERE goal_id = $1`, goalID)
		if err != nil {
			return fmt.Errorf("reload milestones: %w", err)
		}
		current := recompute(remaining)

		if _, err := tx.Exec(ctx, `UPDATE goals SET progress = $2, updated_at = NOW() WHERE id = $1`,
			goalID, current); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}

		change = ProgressChange{GoalID: goalID, Milestone: m, Previous: previous, Progress: current}
		return emit(ctx, tx, r.outbox, mqcontracts.AggregateGoal, goalID.String(), mqcontracts.RoutingGoalProgressChanged,
			mqcontracts.GoalProgressChangedPayload{
				GoalID:      goalID.String(),
				UserID:      userID,
				MilestoneID: m.ID.String(),
				Previous:    previous,
				Progress:    current,
				ChangedAt:   time.Now().UTC(),
				TraceID:     traceID(ctx),
			})
	})
	if err != nil {
		if err != model.ErrNotFound {
			r.logger.Error("Failed to apply milestone change",
				zap.String("op", op.String()),
				zap.String("milestone_id", m.ID.String()),
				zap.Error(err),
			)
		}
		return ProgressChange{}, err
	}

	r.logger.Info("Goal progress recomputed",
		zap.String("goal_id", change.GoalID.String()),
		zap.Int("previous", change.Previous),
		zap.Int("progress", change.Progress),
	)
	return change, nil
}
