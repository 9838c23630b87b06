package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/repositories"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

// BalanceReader reads on-chain balances for one chain. Implemented by
// ethereum.Client; the interface lives here so tests can fake a node.
type BalanceReader interface {
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, token registry.TokenConfig, address string) (decimal.Decimal, error)
}

// ChainDialer hands out a BalanceReader per chain.
type ChainDialer interface {
	ForChain(chain registry.ChainConfig) (BalanceReader, error)
}

// ChainDialerFunc adapts a function to the ChainDialer interface
type ChainDialerFunc func(chain registry.ChainConfig) (BalanceReader, error)

func (f ChainDialerFunc) ForChain(chain registry.ChainConfig) (BalanceReader, error) {
	return f(chain)
}

// ValidationError reports a malformed wallet connection tuple
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("wallet connection missing required field %q", e.Field)
}

// SyncStatus describes how a wallet in a batch was resolved
type SyncStatus string

const (
	// StatusSynced means the wallet was new and fully synchronized
	StatusSynced SyncStatus = "synced"
	// StatusCached means the wallet was already known and its stored
	// balances were returned
	StatusCached SyncStatus = "cached"
	// StatusRefreshed means the wallet was known but stale, and its
	// balances were re-fetched
	StatusRefreshed SyncStatus = "refreshed"
)

// WalletResult is the outcome of syncing one wallet connection
type WalletResult struct {
	Wallet   *entities.Wallet
	Holdings []entities.TokenHolding
	Status   SyncStatus
}

// BalanceSyncService synchronizes one wallet's on-chain balances into
// durable records.
type BalanceSyncService struct {
	walletRepo   repositories.WalletRepository
	holdingRepo  repositories.HoldingRepository
	activityRepo repositories.ActivityRepository
	dialer       ChainDialer
	cfg          config.SyncConfig
	logger       *zap.Logger
}

// NewBalanceSyncService creates a new balance sync service
func NewBalanceSyncService(
	walletRepo repositories.WalletRepository,
	holdingRepo repositories.HoldingRepository,
	activityRepo repositories.ActivityRepository,
	dialer ChainDialer,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *BalanceSyncService {
	return &BalanceSyncService{
		walletRepo:   walletRepo,
		holdingRepo:  holdingRepo,
		activityRepo: activityRepo,
		dialer:       dialer,
		cfg:          cfg,
		logger:       logger,
	}
}

// SyncWallet resolves one wallet connection for a principal: it creates and
// fully synchronizes unknown wallets, returns stored balances for known
// fresh ones, and re-fetches known stale ones when RefreshIfOlderThan is
// configured. The wallet activity row is upserted in every case.
func (s *BalanceSyncService) SyncWallet(ctx context.Context, principal entities.Principal, conn entities.WalletConnection) (*WalletResult, error) {
	if err := validateConnection(conn); err != nil {
		return nil, err
	}

	chain, ok := registry.ChainByName(conn.Blockchain)
	if !ok {
		return nil, &registry.UnsupportedChainError{Name: conn.Blockchain}
	}

	chainKey, err := registry.ChainNameToKey(chain.Name)
	if err != nil {
		return nil, err
	}

	tokens := registry.TokensForChain(chainKey)
	if len(tokens) == 0 && !chain.NativeOnly {
		// Only explicitly native-only chains may carry an empty token list
		return nil, fmt.Errorf("no tokens configured for chain %s", chain.Name)
	}

	// Rows store the canonical chain name, so the lookup must too, or a
	// resubmission spelled differently would miss a known wallet.
	existing, err := s.walletRepo.FindByIdentity(ctx, conn.Address, conn.Provider, chain.Name)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return s.resolveKnownWallet(ctx, principal, existing, chain, tokens)
	}

	return s.syncNewWallet(ctx, principal, conn, chain, tokens)
}

// RefreshWallet re-fetches a known wallet's native balance and replaces its
// holding set. Used by the background refresher.
func (s *BalanceSyncService) RefreshWallet(ctx context.Context, wallet *entities.Wallet) error {
	chain, ok := registry.ChainByName(wallet.Blockchain)
	if !ok {
		return &registry.UnsupportedChainError{Name: wallet.Blockchain}
	}

	chainKey, err := registry.ChainNameToKey(chain.Name)
	if err != nil {
		return err
	}

	_, err = s.refreshBalances(ctx, wallet, chain, registry.TokensForChain(chainKey))
	return err
}

// resolveKnownWallet returns the stored wallet, refreshing its balances
// first when the row is older than the configured staleness threshold.
func (s *BalanceSyncService) resolveKnownWallet(
	ctx context.Context,
	principal entities.Principal,
	wallet *entities.Wallet,
	chain registry.ChainConfig,
	tokens []registry.TokenConfig,
) (*WalletResult, error) {
	status := StatusCached

	if s.cfg.RefreshIfOlderThan > 0 && time.Since(wallet.UpdatedAt) > s.cfg.RefreshIfOlderThan {
		holdings, err := s.refreshBalances(ctx, wallet, chain, tokens)
		if err != nil {
			return nil, err
		}
		if err := s.touchActivity(ctx, principal, wallet.ID); err != nil {
			return nil, err
		}
		return &WalletResult{Wallet: wallet, Holdings: holdings, Status: StatusRefreshed}, nil
	}

	holdings, err := s.holdingRepo.GetByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, err
	}

	if err := s.touchActivity(ctx, principal, wallet.ID); err != nil {
		return nil, err
	}

	walletsResolved.WithLabelValues(string(status)).Inc()

	return &WalletResult{Wallet: wallet, Holdings: holdings, Status: status}, nil
}

// syncNewWallet performs the first full synchronization of a wallet
func (s *BalanceSyncService) syncNewWallet(
	ctx context.Context,
	principal entities.Principal,
	conn entities.WalletConnection,
	chain registry.ChainConfig,
	tokens []registry.TokenConfig,
) (*WalletResult, error) {
	client, err := s.dialer.ForChain(chain)
	if err != nil {
		rpcErrors.WithLabelValues(chain.Name).Inc()
		return nil, err
	}

	native, err := client.NativeBalance(ctx, conn.Address)
	if err != nil {
		rpcErrors.WithLabelValues(chain.Name).Inc()
		return nil, err
	}

	wallet := &entities.Wallet{
		Address:    conn.Address,
		Provider:   conn.Provider,
		Blockchain: chain.Name,
		Balance:    native,
	}
	if conn.ProviderImage != "" {
		image := conn.ProviderImage
		wallet.ProviderImage = &image
	}
	if principal.IsBusiness() {
		companyID := principal.CompanyID
		wallet.CompanyID = &companyID
	} else {
		userID := principal.UserID
		wallet.UserID = &userID
	}

	created, isNew, err := s.walletRepo.Create(ctx, wallet)
	if err != nil {
		return nil, err
	}

	if !isNew {
		// Lost the create race; the winner owns the holding sync
		s.logger.Debug("Wallet create raced, using existing row",
			zap.String("address", conn.Address),
			zap.String("chain", chain.Name),
		)
		return s.resolveKnownWallet(ctx, principal, created, chain, tokens)
	}

	holdings, err := s.fetchHoldings(ctx, client, created.ID, conn.Address, chain, tokens)
	if err != nil {
		return nil, err
	}

	if err := s.holdingRepo.CreateBatch(ctx, holdings); err != nil {
		return nil, err
	}
	holdingsWritten.Add(float64(len(holdings)))

	if err := s.touchActivity(ctx, principal, created.ID); err != nil {
		return nil, err
	}

	s.logger.Info("Synchronized new wallet",
		zap.String("address", created.Address),
		zap.String("chain", created.Blockchain),
		zap.String("balance", created.Balance.String()),
		zap.Int("holdings", len(holdings)),
	)
	walletsResolved.WithLabelValues(string(StatusSynced)).Inc()

	return &WalletResult{Wallet: created, Holdings: holdings, Status: StatusSynced}, nil
}

// refreshBalances re-fetches the native balance and replaces the holding set
func (s *BalanceSyncService) refreshBalances(
	ctx context.Context,
	wallet *entities.Wallet,
	chain registry.ChainConfig,
	tokens []registry.TokenConfig,
) ([]entities.TokenHolding, error) {
	client, err := s.dialer.ForChain(chain)
	if err != nil {
		rpcErrors.WithLabelValues(chain.Name).Inc()
		return nil, err
	}

	native, err := client.NativeBalance(ctx, wallet.Address)
	if err != nil {
		rpcErrors.WithLabelValues(chain.Name).Inc()
		return nil, err
	}

	if err := s.walletRepo.UpdateBalance(ctx, wallet.ID, native); err != nil {
		return nil, err
	}
	wallet.Balance = native
	wallet.UpdatedAt = time.Now()

	holdings, err := s.fetchHoldings(ctx, client, wallet.ID, wallet.Address, chain, tokens)
	if err != nil {
		return nil, err
	}

	if err := s.holdingRepo.ReplaceForWallet(ctx, wallet.ID, holdings); err != nil {
		return nil, err
	}
	holdingsWritten.Add(float64(len(holdings)))

	s.logger.Info("Refreshed wallet balances",
		zap.String("address", wallet.Address),
		zap.String("chain", wallet.Blockchain),
		zap.Int("holdings", len(holdings)),
	)
	walletsResolved.WithLabelValues(string(StatusRefreshed)).Inc()

	return holdings, nil
}

// fetchHoldings queries every configured token balance with bounded
// concurrency and keeps only the strictly positive ones. A single token's
// RPC failure drops that token from the holding set rather than failing the
// wallet; the native balance is already durable at this point.
func (s *BalanceSyncService) fetchHoldings(
	ctx context.Context,
	client BalanceReader,
	walletID string,
	address string,
	chain registry.ChainConfig,
	tokens []registry.TokenConfig,
) ([]entities.TokenHolding, error) {
	holdings := make([]entities.TokenHolding, 0, len(tokens))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.TokenWorkers)

	for _, token := range tokens {
		token := token
		g.Go(func() error {
			balance, err := client.TokenBalance(gCtx, token, address)
			if err != nil {
				rpcErrors.WithLabelValues(chain.Name).Inc()
				s.logger.Warn("Token balance query failed, dropping token from holdings",
					zap.String("token", token.Symbol),
					zap.String("chain", chain.Name),
					zap.String("address", address),
					zap.Error(err),
				)
				return nil
			}

			if !balance.IsPositive() {
				return nil
			}

			mu.Lock()
			holdings = append(holdings, entities.TokenHolding{
				WalletID:  walletID,
				TokenName: token.Name,
				Symbol:    token.Symbol,
				Balance:   balance,
			})
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return holdings, nil
}

// touchActivity upserts the (user, wallet) activity row with the current time
func (s *BalanceSyncService) touchActivity(ctx context.Context, principal entities.Principal, walletID string) error {
	if principal.UserID == "" {
		return nil
	}
	return s.activityRepo.Upsert(ctx, principal.UserID, walletID, time.Now())
}

func validateConnection(conn entities.WalletConnection) error {
	switch {
	case conn.Address == "":
		return &ValidationError{Field: "address"}
	case conn.Provider == "":
		return &ValidationError{Field: "provider"}
	case conn.Blockchain == "":
		return &ValidationError{Field: "blockchain"}
	}
	return nil
}
