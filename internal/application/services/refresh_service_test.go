package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/testutil"
)

// fakeRefresher records which wallets were refreshed
type fakeRefresher struct {
	mu        sync.Mutex
	refreshed []string
	failFor   map[string]error
}

func (f *fakeRefresher) RefreshWallet(ctx context.Context, wallet *entities.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[wallet.ID]; ok {
		return err
	}
	f.refreshed = append(f.refreshed, wallet.ID)
	return nil
}

func (f *fakeRefresher) Refreshed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refreshed...)
}

func refreshConfig() config.SyncConfig {
	return config.SyncConfig{
		WalletWorkers:      2,
		PollInterval:       time.Hour,
		RefreshIfOlderThan: time.Hour,
		RefreshBatch:       50,
	}
}

func TestRefreshStale(t *testing.T) {
	walletRepo := testutil.NewMockWalletRepository()
	refresher := &fakeRefresher{}

	stale := []entities.Wallet{
		testutil.ExistingWallet("wallet-1", testutil.TestAddress, time.Now().Add(-2*time.Hour)),
		testutil.ExistingWallet("wallet-2", testutil.TestAddressOther, time.Now().Add(-3*time.Hour)),
	}
	walletRepo.ListStaleFunc = func(ctx context.Context, cutoff time.Time, limit int) ([]entities.Wallet, error) {
		if limit != 50 {
			t.Errorf("expected batch limit 50, got %d", limit)
		}
		return stale, nil
	}

	service := NewRefreshService(walletRepo, refresher, refreshConfig(), zap.NewNop())
	service.refreshStale(context.Background())

	refreshed := refresher.Refreshed()
	if len(refreshed) != 2 {
		t.Fatalf("expected 2 wallets refreshed, got %d", len(refreshed))
	}
}

func TestRefreshStale_SingleFailureDoesNotStopPass(t *testing.T) {
	walletRepo := testutil.NewMockWalletRepository()
	refresher := &fakeRefresher{
		failFor: map[string]error{"wallet-1": errors.New("node unreachable")},
	}

	walletRepo.ListStaleFunc = func(ctx context.Context, cutoff time.Time, limit int) ([]entities.Wallet, error) {
		return []entities.Wallet{
			testutil.ExistingWallet("wallet-1", testutil.TestAddress, time.Now().Add(-2*time.Hour)),
			testutil.ExistingWallet("wallet-2", testutil.TestAddressOther, time.Now().Add(-2*time.Hour)),
		}, nil
	}

	service := NewRefreshService(walletRepo, refresher, refreshConfig(), zap.NewNop())
	service.refreshStale(context.Background())

	refreshed := refresher.Refreshed()
	if len(refreshed) != 1 || refreshed[0] != "wallet-2" {
		t.Errorf("expected wallet-2 to refresh despite wallet-1 failing, got %v", refreshed)
	}
}

func TestRefreshService_StartStop(t *testing.T) {
	walletRepo := testutil.NewMockWalletRepository()
	refresher := &fakeRefresher{}

	cfg := refreshConfig()
	cfg.PollInterval = 10 * time.Millisecond

	done := make(chan struct{})
	var once sync.Once
	walletRepo.ListStaleFunc = func(ctx context.Context, cutoff time.Time, limit int) ([]entities.Wallet, error) {
		once.Do(func() { close(done) })
		return nil, nil
	}

	service := NewRefreshService(walletRepo, refresher, cfg, zap.NewNop())
	service.Start(context.Background())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher never ran a pass")
	}

	service.Stop()
}

func TestStaleness(t *testing.T) {
	t.Run("uses the configured threshold", func(t *testing.T) {
		cfg := config.SyncConfig{RefreshIfOlderThan: 2 * time.Hour, PollInterval: 15 * time.Minute}
		service := NewRefreshService(testutil.NewMockWalletRepository(), &fakeRefresher{}, cfg, zap.NewNop())
		if got := service.staleness(); got != 2*time.Hour {
			t.Errorf("expected 2h, got %s", got)
		}
	})

	t.Run("falls back to the poll interval", func(t *testing.T) {
		cfg := config.SyncConfig{PollInterval: 15 * time.Minute}
		service := NewRefreshService(testutil.NewMockWalletRepository(), &fakeRefresher{}, cfg, zap.NewNop())
		if got := service.staleness(); got != 15*time.Minute {
			t.Errorf("expected 15m, got %s", got)
		}
	})
}
