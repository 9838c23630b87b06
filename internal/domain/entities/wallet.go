package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletConnection is the raw tuple submitted by the browser-side wallet
// integration. It is transient input, never persisted as-is.
type WalletConnection struct {
	Address       string `json:"address"`
	Provider      string `json:"provider"`
	Blockchain    string `json:"blockchain"`
	ProviderImage string `json:"providerImage,omitempty"`
}

// Wallet is a durable on-chain account owned by a user or a company.
// Identity is the (address, provider, blockchain) triple; the database
// enforces it with a unique constraint.
type Wallet struct {
	ID            string          `db:"id"`
	Address       string          `db:"address"`
	Provider      string          `db:"provider"`
	Blockchain    string          `db:"blockchain"`
	ProviderImage *string         `db:"provider_image"`
	Balance       decimal.Decimal `db:"balance"`
	UserID        *string         `db:"user_id"`
	CompanyID     *string         `db:"company_id"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// TokenHolding is a strictly positive balance of one token within one
// wallet. Zero balances are never recorded.
type TokenHolding struct {
	ID        string          `db:"id"`
	WalletID  string          `db:"wallet_id"`
	TokenName string          `db:"token_name"`
	Symbol    string          `db:"symbol"`
	Balance   decimal.Decimal `db:"balance"`
	Icon      *string         `db:"icon"`
	CreatedAt time.Time       `db:"created_at"`
}

// WalletActivity records the last time a user referenced a wallet. Exactly
// one row per (user, wallet) pair, upserted on every sighting.
type WalletActivity struct {
	UserID   string    `db:"user_id"`
	WalletID string    `db:"wallet_id"`
	LastUsed time.Time `db:"last_used"`
}
