package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "tandem/contracts/mq"
	"tandem/internal/model"
	"tandem/pkg/outbox"
)

type ProfileRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewProfileRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		outbox: outboxRepo,
		logger: logger,
	}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.QueryRow(ctx, `
        SELECT id, email, full_name, avatar_url, updated_at
        FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Upsert inserts or replaces the profile and records profile.upserted.
func (r *ProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	r.logger.Debug("Upserting profile", zap.String("user_id", p.ID))

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
            INSERT INTO profiles (id, email, full_name, avatar_url, updated_at)
            VALUES ($1, $2, $3, $4, NOW())
            ON CONFLICT (id) DO UPDATE
            SET email = EXCLUDED.email,
                full_name = EXCLUDED.full_name,
                avatar_url = EXCLUDED.avatar_url,
                updated_at = NOW()
            RETURNING updated_at`,
			p.ID, p.Email, p.FullName, p.AvatarURL,
		).Scan(&p.UpdatedAt); err != nil {
			return err
		}
		return emit(ctx, tx, r.outbox, mqcontracts.AggregateProfile, p.ID, mqcontracts.RoutingProfileUpserted,
			mqcontracts.ProfileUpsertedPayload{
				UserID:    p.ID,
				Email:     p.Email,
				FullName:  p.FullName,
				AvatarURL: p.AvatarURL,
				UpdatedAt: p.UpdatedAt,
				TraceID:   traceID(ctx),
			})
	})
	if err != nil {
		r.logger.Error("Failed to upsert profile", zap.String("user_id", p.ID), zap.Error(err))
		return err
	}
	r.logger.Info("Profile upserted", zap.String("user_id", p.ID))
	return nil
}

// Delete removes the profile. Deleting an unknown profile is not an error.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
			return err
		}
		return emit(ctx, tx, r.outbox, mqcontracts.AggregateProfile, id, mqcontracts.RoutingProfileDeleted,
			mqcontracts.ProfileDeletedPayload{
				UserID:    id,
				DeletedAt: time.Now().UTC(),
				TraceID:   traceID(ctx),
			})
	})
	if err != nil {
		r.logger.Error("Failed to delete profile", zap.String("user_id", id), zap.Error(err))
		return err
	}
	r.logger.Info("Profile deleted", zap.String("user_id", id))
	return nil
}
