package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/repositories"
)

// Ensure ActivityRepo implements ActivityRepository
var _ repositories.ActivityRepository = (*ActivityRepo)(nil)

// ActivityRepo implements ActivityRepository using PostgreSQL
type ActivityRepo struct {
	db *sqlx.DB
}

// NewActivityRepo creates a new wallet activity repository
func NewActivityRepo(db *sqlx.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Upsert records that the user referenced the wallet. The primary key on
// (user_id, wallet_id) keeps exactly one row per pair.
func (r *ActivityRepo) Upsert(ctx context.Context, userID, walletID string, lastUsed time.Time) error {
	query := `
		INSERT INTO wallet_activities (user_id, wallet_id, last_used)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, wallet_id) DO UPDATE SET
			last_used = EXCLUDED.last_used
	`

	if _, err := r.db.ExecContext(ctx, query, userID, walletID, lastUsed); err != nil {
		return fmt.Errorf("failed to upsert wallet activity: %w", err)
	}

	return nil
}

// Get retrieves the activity row for a (user, wallet) pair
func (r *ActivityRepo) Get(ctx context.Context, userID, walletID string) (*entities.WalletActivity, error) {
	var activity entities.WalletActivity
	query := `SELECT * FROM wallet_activities WHERE user_id = $1 AND wallet_id = $2`

	if err := r.db.GetContext(ctx, &activity, query, userID, walletID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet activity: %w", err)
	}

	return &activity, nil
}
