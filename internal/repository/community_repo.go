package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "tandem/contracts/mq"
	"tandem/internal/model"
	"tandem/pkg/outbox"
)

type CommunityRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewCommunityRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *CommunityRepository {
	return &CommunityRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const communityColumns = `id, name, description, color, member_count, post_count`

func scanCommunity(row pgx.Row) (model.Community, error) {
	var c model.Community
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.MemberCount, &c.PostCount)
	return c, err
}

// List returns all communities, largest first.
func (r *CommunityRepository) List(ctx context.Context) ([]model.Community, error) {
	rows, err := r.db.Query(ctx, `SELECT `+communityColumns+`
        FROM communities ORDER BY member_count DESC, id ASC`)
	if err != nil {
		r.logger.Error("Failed to list communities", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []model.Community{}
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CommunityRepository) FindByID(ctx context.Context, id int64) (*model.Community, error) {
	c, err := scanCommunity(r.db.QueryRow(ctx, `SELECT `+communityColumns+` FROM communities WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO communities (name, description, color)
        VALUES ($1, $2, $3)
        RETURNING id`, c.Name, c.Description, c.Color).Scan(&c.ID)
	if err != nil {
		r.logger.Error("Failed to insert community", zap.String("name", c.Name), zap.Error(err))
		return err
	}
	r.logger.Info("Community created", zap.Int64("id", c.ID), zap.String("name", c.Name))
	return nil
}

func (r *CommunityRepository) IsMember(ctx context.Context, communityID int64, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM community_members WHERE community_id = $1 AND user_id = $2)`,
		communityID, userID).Scan(&ok)
	return ok, err
}

// Join adds the membership. Joining twice is a no-op.
func (r *CommunityRepository) Join(ctx context.Context, communityID int64, userID string) error {
	return r.changeMembership(ctx, communityID, userID, `
        INSERT INTO community_members (community_id, user_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`, 1)
}

// Leave removes the membership. Leaving twice is a no-op.
func (r *CommunityRepository) Leave(ctx context.Context, communityID int64, userID string) error {
	return r.changeMembership(ctx, communityID, userID, `
        DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`, -1)
}

func (r *CommunityRepository) changeMembership(ctx context.Context, communityID int64, userID, stmt string, delta int) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM communities WHERE id = $1 FOR UPDATE`, communityID).Scan(&one); err != nil {
			return notFound(err)
		}
		tag, err := tx.Exec(ctx, stmt, communityID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `
            UPDATE communities SET member_count = GREATEST(member_count + $2, 0) WHERE id = $1`,
			communityID, delta)
		return err
	})
	if err != nil && err != model.ErrNotFound {
		r.logger.Error("Failed to change membership",
			zap.Int64("community_id", communityID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return err
}

func emitPostChanged(ctx context.Context, tx pgx.Tx, repo *outbox.Repository, communityID, postID int64, userID, action string) error {
	return emit(ctx, tx, repo, mqcontracts.AggregateCommunity, fmt.Sprint(communityID), mqcontracts.RoutingPostChanged,
		mqcontracts.PostChangedPayload{
			CommunityID: communityID,
			PostID:      postID,
			UserID:      userID,
			Action:      action,
			ChangedAt:   time.Now().UTC(),
			TraceID:     traceID(ctx),
		})
}
