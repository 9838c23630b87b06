package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
)

// WalletOwner scopes wallet queries to a user or a company. Exactly one
// field is set.
type WalletOwner struct {
	UserID    *string
	CompanyID *string
}

// WalletRepository defines the interface for wallet persistence.
// Implementations must resolve concurrent creates of the same
// (address, provider, blockchain) triple to exactly one durable row.
type WalletRepository interface {
	// FindByIdentity retrieves a wallet by its (address, provider,
	// blockchain) triple. Returns nil when no row exists.
	FindByIdentity(ctx context.Context, address, provider, blockchain string) (*entities.Wallet, error)

	// Create inserts a new wallet row. A unique-constraint race with a
	// concurrent create resolves by returning the winning row with
	// created=false; the caller must not write holdings in that case.
	Create(ctx context.Context, wallet *entities.Wallet) (*entities.Wallet, bool, error)

	// UpdateBalance overwrites a wallet's stored native balance and bumps
	// updated_at.
	UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error

	// ListByOwner retrieves a page of wallets for a user or company.
	ListByOwner(ctx context.Context, owner WalletOwner, limit, offset int) ([]entities.Wallet, error)

	// CountByOwner returns the total wallet count for a user or company.
	CountByOwner(ctx context.Context, owner WalletOwner) (int64, error)

	// ListStale retrieves wallets whose updated_at is older than the cutoff.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]entities.Wallet, error)
}

// HoldingRepository defines the interface for token holding persistence.
type HoldingRepository interface {
	// CreateBatch inserts holdings for a wallet.
	CreateBatch(ctx context.Context, holdings []entities.TokenHolding) error

	// ReplaceForWallet atomically swaps a wallet's holding set.
	ReplaceForWallet(ctx context.Context, walletID string, holdings []entities.TokenHolding) error

	// GetByWallet retrieves all holdings for one wallet.
	GetByWallet(ctx context.Context, walletID string) ([]entities.TokenHolding, error)

	// GetByWallets retrieves holdings for several wallets keyed by wallet ID.
	GetByWallets(ctx context.Context, walletIDs []string) (map[string][]entities.TokenHolding, error)
}

// ActivityRepository defines the interface for wallet activity persistence.
type ActivityRepository interface {
	// Upsert records that the user referenced the wallet, advancing
	// last_used. One row per (user, wallet) pair.
	Upsert(ctx context.Context, userID, walletID string, lastUsed time.Time) error

	// Get retrieves the activity row for a (user, wallet) pair. Returns nil
	// when none exists.
	Get(ctx context.Context, userID, walletID string) (*entities.WalletActivity, error)
}
