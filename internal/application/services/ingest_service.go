package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/infrastructure/cache"
	"github.com/david-dina/Crypto-PP-sub000/internal/infrastructure/ethereum"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

// WalletSyncer resolves one wallet connection. Implemented by
// BalanceSyncService.
type WalletSyncer interface {
	SyncWallet(ctx context.Context, principal entities.Principal, conn entities.WalletConnection) (*WalletResult, error)
}

// SkippedWallet reports a connection that was dropped from the batch
type SkippedWallet struct {
	Address    string `json:"address"`
	Blockchain string `json:"blockchain"`
	Reason     string `json:"reason"`
}

// IngestResult aggregates a batch: every connection settles as either a
// wallet result or a skip. Output order is not guaranteed to match input.
type IngestResult struct {
	Wallets []*WalletResult
	Skipped []SkippedWallet
}

// IngestService orchestrates wallet ingestion batches. Connections run
// concurrently under a bounded worker pool; per-item failures become skips,
// and only persistence-level failures abort the batch.
type IngestService struct {
	syncer WalletSyncer
	cache  *cache.RedisCache
	cfg    config.SyncConfig
	logger *zap.Logger
}

// NewIngestService creates a new ingestion service
func NewIngestService(syncer WalletSyncer, cache *cache.RedisCache, cfg config.SyncConfig, logger *zap.Logger) *IngestService {
	return &IngestService{
		syncer: syncer,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Ingest processes a batch of wallet connections for one principal. It
// returns once every connection has settled; a skipped connection never
// fails its siblings.
func (s *IngestService) Ingest(ctx context.Context, principal entities.Principal, conns []entities.WalletConnection) (*IngestResult, error) {
	result := &IngestResult{}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WalletWorkers)

	for _, conn := range conns {
		conn := conn
		g.Go(func() error {
			walletResult, err := s.syncer.SyncWallet(gCtx, principal, conn)
			if err != nil {
				reason, skippable := skipReason(err)
				if !skippable {
					return err
				}

				s.logger.Warn("Skipping wallet connection",
					zap.String("address", conn.Address),
					zap.String("blockchain", conn.Blockchain),
					zap.String("reason", reason),
					zap.Error(err),
				)
				walletsSkipped.WithLabelValues(reason).Inc()

				mu.Lock()
				result.Skipped = append(result.Skipped, SkippedWallet{
					Address:    conn.Address,
					Blockchain: conn.Blockchain,
					Reason:     reason,
				})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			result.Wallets = append(result.Wallets, walletResult)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.invalidateWalletLists(ctx, principal)

	s.logger.Info("Ingested wallet batch",
		zap.String("user_id", principal.UserID),
		zap.Int("submitted", len(conns)),
		zap.Int("resolved", len(result.Wallets)),
		zap.Int("skipped", len(result.Skipped)),
	)

	return result, nil
}

// invalidateWalletLists drops cached wallet-list pages for the owner so the
// next GET reflects the new state.
func (s *IngestService) invalidateWalletLists(ctx context.Context, principal entities.Principal) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, walletListPattern(principal)); err != nil {
		s.logger.Warn("Failed to invalidate wallet list cache", zap.Error(err))
	}
}

// skipReason classifies an error per the batch contract: configuration and
// transient chain errors drop the single item, anything else (persistence)
// fails the batch.
func skipReason(err error) (string, bool) {
	var unsupported *registry.UnsupportedChainError
	if errors.As(err, &unsupported) {
		return "unsupported_chain", true
	}

	var rpcErr *ethereum.RPCError
	if errors.As(err, &rpcErr) {
		return "rpc_error", true
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return "invalid_connection", true
	}

	return "", false
}
