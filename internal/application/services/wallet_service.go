package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/repositories"
	"github.com/david-dina/Crypto-PP-sub000/internal/infrastructure/cache"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

// TokenBalanceDTO is the API representation of a token holding
type TokenBalanceDTO struct {
	TokenName string  `json:"tokenName"`
	Balance   string  `json:"balance"`
	Icon      *string `json:"icon,omitempty"`
}

// WalletDTO is the API representation of a wallet with its holdings
type WalletDTO struct {
	ID            string            `json:"id"`
	Address       string            `json:"address"`
	Blockchain    string            `json:"blockchain"`
	Provider      string            `json:"provider"`
	ProviderImage *string           `json:"providerImage,omitempty"`
	Balance       string            `json:"balance"`
	UpdatedAt     string            `json:"updatedAt"`
	TokenBalances []TokenBalanceDTO `json:"tokenBalances"`
}

// WalletListResponse wraps a paginated wallet listing
type WalletListResponse struct {
	Success bool        `json:"success"`
	Data    []WalletDTO `json:"data"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	Total   int64       `json:"total"`
}

// WalletService provides read access to a principal's wallets
type WalletService struct {
	walletRepo  repositories.WalletRepository
	holdingRepo repositories.HoldingRepository
	cache       *cache.RedisCache
	logger      *zap.Logger
}

// NewWalletService creates a new wallet service
func NewWalletService(
	walletRepo repositories.WalletRepository,
	holdingRepo repositories.HoldingRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		walletRepo:  walletRepo,
		holdingRepo: holdingRepo,
		cache:       cache,
		logger:      logger,
	}
}

// List retrieves a page of the principal's wallets with their token balances
func (s *WalletService) List(ctx context.Context, principal entities.Principal, page, limit int) (*WalletListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("%s:page:%d:limit:%d", walletListPrefix(principal), page, limit)

	var cached WalletListResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	owner := ownerFromPrincipal(principal)

	total, err := s.walletRepo.CountByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to count wallets: %w", err)
	}

	wallets, err := s.walletRepo.ListByOwner(ctx, owner, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	walletIDs := make([]string, len(wallets))
	for i, w := range wallets {
		walletIDs[i] = w.ID
	}

	holdingsByWallet, err := s.holdingRepo.GetByWallets(ctx, walletIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	data := make([]WalletDTO, len(wallets))
	for i, w := range wallets {
		w := w
		data[i] = ToWalletDTO(&w, holdingsByWallet[w.ID])
	}

	response := &WalletListResponse{
		Success: true,
		Data:    data,
		Page:    page,
		Limit:   limit,
		Total:   total,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache wallet list", zap.Error(err))
		}
	}

	return response, nil
}

// ToWalletDTO builds the API shape for a wallet. Holdings carrying the
// chain's native symbol are excluded; the native balance is already the
// wallet's top-level balance field.
func ToWalletDTO(wallet *entities.Wallet, holdings []entities.TokenHolding) WalletDTO {
	nativeSymbol := ""
	if chain, ok := registry.ChainByName(wallet.Blockchain); ok {
		nativeSymbol = chain.NativeSymbol
	}

	balances := make([]TokenBalanceDTO, 0, len(holdings))
	for _, h := range holdings {
		if nativeSymbol != "" && h.Symbol == nativeSymbol {
			continue
		}
		balances = append(balances, TokenBalanceDTO{
			TokenName: h.TokenName,
			Balance:   h.Balance.String(),
			Icon:      h.Icon,
		})
	}

	return WalletDTO{
		ID:            wallet.ID,
		Address:       wallet.Address,
		Blockchain:    wallet.Blockchain,
		Provider:      wallet.Provider,
		ProviderImage: wallet.ProviderImage,
		Balance:       wallet.Balance.String(),
		UpdatedAt:     wallet.UpdatedAt.UTC().Format(time.RFC3339),
		TokenBalances: balances,
	}
}

func ownerFromPrincipal(principal entities.Principal) repositories.WalletOwner {
	if principal.IsBusiness() {
		companyID := principal.CompanyID
		return repositories.WalletOwner{CompanyID: &companyID}
	}
	userID := principal.UserID
	return repositories.WalletOwner{UserID: &userID}
}

func walletListPrefix(principal entities.Principal) string {
	if principal.IsBusiness() {
		return "wallets:company:" + principal.CompanyID
	}
	return "wallets:user:" + principal.UserID
}

func walletListPattern(principal entities.Principal) string {
	return walletListPrefix(principal) + ":*"
}
