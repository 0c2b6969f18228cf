package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "tandem/contracts/mq"
	"tandem/internal/model"
	"tandem/pkg/outbox"
)

type PostRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewPostRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *PostRepository {
	return &PostRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

const postSelect = `
        SELECT p.id, p.community_id, p.user_id, COALESCE(pr.full_name, ''), COALESCE(pr.avatar_url, ''),
               p.content, p.image_url, p.like_count, p.comment_count, p.created_at
        FROM posts p
        LEFT JOIN profiles pr ON pr.id = p.user_id`

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID,
		&p.CommunityID,
		&p.UserID,
		&p.Author.Name,
		&p.Author.AvatarURL,
		&p.Content,
		&p.ImageURL,
		&p.LikeCount,
		&p.CommentCount,
		&p.CreatedAt,
	)
	return p, err
}

// ListByCommunity returns the feed newest first with author profiles.
// LikedByMe is left false; it is per viewer.
func (r *PostRepository) ListByCommunity(ctx context.Context, communityID int64, limit int) ([]model.Post, error) {
	rows, err := r.db.Query(ctx, postSelect+`
        WHERE p.community_id = $1
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT $2`, communityID, limit)
	if err != nil {
		r.logger.Error("Failed to list posts", zap.Int64("community_id", communityID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LikedPostIDs returns which of postIDs userID has liked.
func (r *PostRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []int64) (map[int64]bool, error) {
	liked := make(map[int64]bool)
	if len(postIDs) == 0 || userID == "" {
		return liked, nil
	}
	rows, err := r.db.Query(ctx, `
        SELECT post_id FROM post_likes WHERE user_id = $1 AND post_id = ANY($2)`, userID, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		liked[id] = true
	}
	return liked, rows.Err()
}

func (r *PostRepository) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	p, err := scanPost(r.db.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// CommunitiesByAuthor lists the communities userID has posted in.
func (r *PostRepository) CommunitiesByAuthor(ctx context.Context, userID string) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT community_id FROM posts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostRepository) Insert(ctx context.Context, p *model.Post) error {
	r.logger.Debug("Inserting post",
		zap.Int64("community_id", p.CommunityID),
		zap.String("user_id", p.UserID),
	)

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO posts (community_id, user_id, content, image_url)
            VALUES ($1, $2, $3, $4)
            RETURNING id, created_at`,
			p.CommunityID, p.UserID, p.Content, p.ImageURL,
		).Scan(&p.ID, &p.CreatedAt); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE communities SET post_count = post_count + 1 WHERE id = $1`, p.CommunityID); err != nil {
			return err
		}
		return emitPostChanged(ctx, tx, r.outbox, p.CommunityID, p.ID, p.UserID, mqcontracts.PostCreated)
	})
	if err != nil {
		r.logger.Error("Failed to insert post", zap.Error(err))
		return err
	}

	r.logger.Info("Post inserted successfully",
		zap.Int64("id", p.ID),
		zap.Int64("community_id", p.CommunityID),
	)
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, p *model.Post) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, p.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `
            UPDATE communities SET post_count = GREATEST(post_count - 1, 0) WHERE id = $1`, p.CommunityID); err != nil {
			return err
		}
		return emitPostChanged(ctx, tx, r.outbox, p.CommunityID, p.ID, p.UserID, mqcontracts.PostDeleted)
	})
	if err != nil && err != model.ErrNotFound {
		r.logger.Error("Failed to delete post", zap.Int64("post_id", p.ID), zap.Error(err))
	}
	return err
}

// Like records a like; liking twice leaves the count unchanged.
func (r *PostRepository) Like(ctx context.Context, p *model.Post, userID string) error {
	return r.changeLike(ctx, p, userID, `
        INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		1, mqcontracts.PostLiked)
}

func (r *PostRepository) Unlike(ctx context.Context, p *model.Post, userID string) error {
	return r.changeLike(ctx, p, userID, `
        DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
		-1, mqcontracts.PostUnliked)
}

func (r *PostRepository) changeLike(ctx context.Context, p *model.Post, userID, stmt string, delta int, action string) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, stmt, p.ID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if err := tx.QueryRow(ctx, `
            UPDATE posts SET like_count = GREATEST(like_count + $2, 0) WHERE id = $1
            RETURNING like_count`, p.ID, delta).Scan(&p.LikeCount); err != nil {
			return err
		}
		return emitPostChanged(ctx, tx, r.outbox, p.CommunityID, p.ID, userID, action)
	})
	if err != nil {
		r.logger.Error("Failed to change like",
			zap.Int64("post_id", p.ID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
	return err
}

func (r *PostRepository) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := r.db.Query(ctx, `
        SELECT c.id, c.post_id, c.user_id, COALESCE(pr.full_name, ''), c.content, c.created_at
        FROM comments c
        LEFT JOIN profiles pr ON pr.id = c.user_id
        WHERE c.post_id = $1
        ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		r.logger.Error("Failed to list comments", zap.Int64("post_id", postID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostRepository) InsertComment(ctx context.Context, p *model.Post, c *model.Comment) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO comments (post_id, user_id, content)
            VALUES ($1, $2, $3)
            RETURNING id, created_at`, c.PostID, c.UserID, c.Content,
		).Scan(&c.ID, &c.CreatedAt); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		if err := tx.QueryRow(ctx, `
            UPDATE posts SET comment_count = comment_count + 1 WHERE id = $1
            RETURNING comment_count`, p.ID).Scan(&p.CommentCount); err != nil {
			return err
		}
		return emitPostChanged(ctx, tx, r.outbox, p.CommunityID, p.ID, c.UserID, mqcontracts.PostCommented)
	})
	if err != nil {
		r.logger.Error("Failed to insert comment", zap.Int64("post_id", p.ID), zap.Error(err))
		return err
	}
	r.logger.Info("Comment inserted", zap.Int64("id", c.ID), zap.Int64("post_id", p.ID))
	return nil
}
