package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/repositories"
)

// uniqueViolation is the Postgres error code for unique-constraint conflicts.
const uniqueViolation = "23505"

// Ensure WalletRepo implements WalletRepository
var _ repositories.WalletRepository = (*WalletRepo)(nil)

// WalletRepo implements WalletRepository using PostgreSQL
type WalletRepo struct {
	db *sqlx.DB
}

// NewWalletRepo creates a new wallet repository
func NewWalletRepo(db *sqlx.DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// FindByIdentity retrieves a wallet by its (address, provider, blockchain) triple
func (r *WalletRepo) FindByIdentity(ctx context.Context, address, provider, blockchain string) (*entities.Wallet, error) {
	var wallet entities.Wallet
	query := `SELECT * FROM wallets WHERE address = $1 AND provider = $2 AND blockchain = $3`

	if err := r.db.GetContext(ctx, &wallet, query, address, provider, blockchain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find wallet: %w", err)
	}

	return &wallet, nil
}

// Create inserts a new wallet row. When a concurrent create wins the race
// on the (address, provider, blockchain) unique constraint, the existing
// row is fetched and returned instead of an error.
func (r *WalletRepo) Create(ctx context.Context, wallet *entities.Wallet) (*entities.Wallet, bool, error) {
	query := `
		INSERT INTO wallets (address, provider, blockchain, provider_image, balance, user_id, company_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`

	var created entities.Wallet
	err := r.db.GetContext(ctx, &created, query,
		wallet.Address,
		wallet.Provider,
		wallet.Blockchain,
		wallet.ProviderImage,
		wallet.Balance,
		wallet.UserID,
		wallet.CompanyID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			existing, findErr := r.FindByIdentity(ctx, wallet.Address, wallet.Provider, wallet.Blockchain)
			if findErr != nil {
				return nil, false, fmt.Errorf("failed to load wallet after conflict: %w", findErr)
			}
			if existing == nil {
				return nil, false, fmt.Errorf("wallet conflict but no existing row: %w", err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create wallet: %w", err)
	}

	return &created, true, nil
}

// UpdateBalance overwrites a wallet's stored native balance
func (r *WalletRepo) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	query := `UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, walletID, balance); err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	return nil
}

// ListByOwner retrieves a page of wallets for a user or company
func (r *WalletRepo) ListByOwner(ctx context.Context, owner repositories.WalletOwner, limit, offset int) ([]entities.Wallet, error) {
	column, id, err := ownerColumn(owner)
	if err != nil {
		return nil, err
	}

	var wallets []entities.Wallet
	query := fmt.Sprintf(`SELECT * FROM wallets WHERE %s = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, column)

	if err := r.db.SelectContext(ctx, &wallets, query, id, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	return wallets, nil
}

// CountByOwner returns the total wallet count for a user or company
func (r *WalletRepo) CountByOwner(ctx context.Context, owner repositories.WalletOwner) (int64, error) {
	column, id, err := ownerColumn(owner)
	if err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM wallets WHERE %s = $1`, column)

	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("failed to count wallets: %w", err)
	}

	return count, nil
}

// ListStale retrieves wallets not refreshed since the cutoff
func (r *WalletRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]entities.Wallet, error) {
	var wallets []entities.Wallet
	query := `SELECT * FROM wallets WHERE updated_at < $1 ORDER BY updated_at ASC LIMIT $2`

	if err := r.db.SelectContext(ctx, &wallets, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale wallets: %w", err)
	}

	return wallets, nil
}

// ownerColumn maps a WalletOwner to its filter column. The column name is
// fixed here, never caller-supplied.
func ownerColumn(owner repositories.WalletOwner) (string, string, error) {
	switch {
	case owner.CompanyID != nil:
		return "company_id", *owner.CompanyID, nil
	case owner.UserID != nil:
		return "user_id", *owner.UserID, nil
	default:
		return "", "", fmt.Errorf("wallet owner has neither user nor company")
	}
}
