package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/repositories"
)

// WalletRefresher re-syncs one known wallet. Implemented by
// BalanceSyncService.
type WalletRefresher interface {
	RefreshWallet(ctx context.Context, wallet *entities.Wallet) error
}

// RefreshService periodically re-fetches balances for wallets whose stored
// state has gone stale. It runs as its own process (cmd/syncer) so the API
// path stays cheap.
type RefreshService struct {
	walletRepo repositories.WalletRepository
	refresher  WalletRefresher
	cfg        config.SyncConfig
	logger     *zap.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewRefreshService creates a new refresh service
func NewRefreshService(
	walletRepo repositories.WalletRepository,
	refresher WalletRefresher,
	cfg config.SyncConfig,
	logger *zap.Logger,
) *RefreshService {
	return &RefreshService{
		walletRepo: walletRepo,
		refresher:  refresher,
		cfg:        cfg,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the refresh loop
func (s *RefreshService) Start(ctx context.Context) {
	s.logger.Info("Starting wallet refresher",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Duration("staleness", s.staleness()),
		zap.Int("batch", s.cfg.RefreshBatch),
	)

	s.wg.Add(1)
	go s.runLoop(ctx)
}

// Stop gracefully stops the refresher
func (s *RefreshService) Stop() {
	s.logger.Info("Stopping wallet refresher")
	close(s.stopCh)
	s.wg.Wait()
}

// staleness is the cutoff age for a refresh pass. When no explicit
// threshold is configured the poll interval doubles as one, so the loop
// still converges on fresh data.
func (s *RefreshService) staleness() time.Duration {
	if s.cfg.RefreshIfOlderThan > 0 {
		return s.cfg.RefreshIfOlderThan
	}
	return s.cfg.PollInterval
}

// runLoop wakes on every tick and refreshes one batch of stale wallets
func (s *RefreshService) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.refreshStale(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.refreshStale(ctx)
		}
	}
}

// refreshStale refreshes up to RefreshBatch stale wallets concurrently.
// A single wallet's failure is counted and logged but never stops the pass.
func (s *RefreshService) refreshStale(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleness())

	wallets, err := s.walletRepo.ListStale(ctx, cutoff, s.cfg.RefreshBatch)
	if err != nil {
		s.logger.Error("Failed to list stale wallets", zap.Error(err))
		refreshErrors.Inc()
		return
	}

	if len(wallets) == 0 {
		return
	}

	s.logger.Info("Refreshing stale wallets", zap.Int("count", len(wallets)))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WalletWorkers)

	for i := range wallets {
		wallet := wallets[i]
		g.Go(func() error {
			if err := s.refresher.RefreshWallet(gCtx, &wallet); err != nil {
				s.logger.Warn("Failed to refresh wallet",
					zap.String("address", wallet.Address),
					zap.String("chain", wallet.Blockchain),
					zap.Error(err),
				)
				refreshErrors.Inc()
				return nil
			}
			staleWalletsRefreshed.Inc()
			return nil
		})
	}

	g.Wait()
}
