package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/repositories"
)

// Ensure HoldingRepo implements HoldingRepository
var _ repositories.HoldingRepository = (*HoldingRepo)(nil)

// HoldingRepo implements HoldingRepository using PostgreSQL
type HoldingRepo struct {
	db *sqlx.DB
}

// NewHoldingRepo creates a new token holding repository
func NewHoldingRepo(db *sqlx.DB) *HoldingRepo {
	return &HoldingRepo{db: db}
}

// CreateBatch inserts holdings for a wallet
func (r *HoldingRepo) CreateBatch(ctx context.Context, holdings []entities.TokenHolding) error {
	if len(holdings) == 0 {
		return nil
	}
	return insertHoldings(ctx, r.db, holdings)
}

// ReplaceForWallet atomically swaps a wallet's holding set inside one
// transaction, so readers never observe a partially refreshed set.
func (r *HoldingRepo) ReplaceForWallet(ctx context.Context, walletID string, holdings []entities.TokenHolding) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin holdings transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM token_balances WHERE wallet_id = $1`, walletID); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}

	if len(holdings) > 0 {
		if err := insertHoldings(ctx, tx, holdings); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holdings transaction: %w", err)
	}

	return nil
}

// GetByWallet retrieves all holdings for one wallet
func (r *HoldingRepo) GetByWallet(ctx context.Context, walletID string) ([]entities.TokenHolding, error) {
	var holdings []entities.TokenHolding
	query := `SELECT * FROM token_balances WHERE wallet_id = $1 ORDER BY symbol`

	if err := r.db.SelectContext(ctx, &holdings, query, walletID); err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	return holdings, nil
}

// GetByWallets retrieves holdings for several wallets keyed by wallet ID
func (r *HoldingRepo) GetByWallets(ctx context.Context, walletIDs []string) (map[string][]entities.TokenHolding, error) {
	result := make(map[string][]entities.TokenHolding)
	if len(walletIDs) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM token_balances WHERE wallet_id IN (?) ORDER BY symbol`, walletIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build holdings query: %w", err)
	}

	var holdings []entities.TokenHolding
	if err := r.db.SelectContext(ctx, &holdings, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	for _, h := range holdings {
		result[h.WalletID] = append(result[h.WalletID], h)
	}

	return result, nil
}

// insertHoldings runs against either the pool or a transaction
func insertHoldings(ctx context.Context, ext sqlx.ExtContext, holdings []entities.TokenHolding) error {
	query := `
		INSERT INTO token_balances (wallet_id, token_name, symbol, balance, icon)
		VALUES (:wallet_id, :token_name, :symbol, :balance, :icon)
	`

	if _, err := sqlx.NamedExecContext(ctx, ext, query, holdings); err != nil {
		return fmt.Errorf("failed to insert holdings: %w", err)
	}

	return nil
}
