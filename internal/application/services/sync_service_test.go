package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
	"github.com/david-dina/Crypto-PP-sub000/internal/testutil"
)

type syncFixture struct {
	walletRepo   *testutil.MockWalletRepository
	holdingRepo  *testutil.MockHoldingRepository
	activityRepo *testutil.MockActivityRepository
	reader       *testutil.MockBalanceReader
	service      *BalanceSyncService
}

func newSyncFixture(t *testing.T, cfg config.SyncConfig) *syncFixture {
	t.Helper()

	if cfg.TokenWorkers == 0 {
		cfg.TokenWorkers = 4
	}

	f := &syncFixture{
		walletRepo:   testutil.NewMockWalletRepository(),
		holdingRepo:  testutil.NewMockHoldingRepository(),
		activityRepo: testutil.NewMockActivityRepository(),
		reader:       testutil.NewMockBalanceReader(),
	}

	dialer := ChainDialerFunc(func(chain registry.ChainConfig) (BalanceReader, error) {
		return f.reader, nil
	})

	f.service = NewBalanceSyncService(
		f.walletRepo, f.holdingRepo, f.activityRepo,
		dialer, cfg, zap.NewNop(),
	)
	return f
}

func TestSyncWallet_NewWallet(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("1.5"))
	f.reader.SetToken(testutil.TestAddress, "USDC", testutil.Decimal("250"))

	result, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusSynced {
		t.Errorf("expected status %s, got %s", StatusSynced, result.Status)
	}
	if result.Wallet.Balance.String() != "1.5" {
		t.Errorf("expected balance 1.5, got %s", result.Wallet.Balance.String())
	}
	if result.Wallet.UserID == nil || *result.Wallet.UserID != testutil.TestUserID {
		t.Error("expected wallet owned by the user")
	}
	if result.Wallet.CompanyID != nil {
		t.Error("personal wallet must not carry a company owner")
	}

	if len(result.Holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(result.Holdings))
	}
	holding := result.Holdings[0]
	if holding.TokenName != "USD Coin" {
		t.Errorf("expected token name USD Coin, got %s", holding.TokenName)
	}
	if holding.Balance.String() != "250" {
		t.Errorf("expected holding balance 250, got %s", holding.Balance.String())
	}

	stored := f.holdingRepo.Holdings(result.Wallet.ID)
	if len(stored) != 1 {
		t.Errorf("expected 1 persisted holding, got %d", len(stored))
	}

	activity, err := f.activityRepo.Get(context.Background(), testutil.TestUserID, result.Wallet.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activity == nil {
		t.Error("expected wallet activity to be recorded")
	}
}

func TestSyncWallet_BusinessOwnership(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("0.25"))

	result, err := f.service.SyncWallet(context.Background(), testutil.BusinessPrincipal(), testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Wallet.CompanyID == nil || *result.Wallet.CompanyID != testutil.TestCompanyID {
		t.Error("expected wallet owned by the company")
	}
	if result.Wallet.UserID != nil {
		t.Error("business wallet must not carry a user owner")
	}
}

func TestSyncWallet_Idempotent(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("1.5"))
	f.reader.SetToken(testutil.TestAddress, "USDC", testutil.Decimal("250"))

	conn := testutil.EthereumConnection(testutil.TestAddress)
	principal := testutil.PersonalPrincipal()

	first, err := f.service.SyncWallet(context.Background(), principal, conn)
	if err != nil {
		t.Fatalf("unexpected error on first sync: %v", err)
	}
	second, err := f.service.SyncWallet(context.Background(), principal, conn)
	if err != nil {
		t.Fatalf("unexpected error on second sync: %v", err)
	}

	if second.Status != StatusCached {
		t.Errorf("expected status %s on resubmission, got %s", StatusCached, second.Status)
	}
	if first.Wallet.ID != second.Wallet.ID {
		t.Errorf("expected the same wallet row, got %s and %s", first.Wallet.ID, second.Wallet.ID)
	}
	if rows := f.walletRepo.Wallets(); len(rows) != 1 {
		t.Errorf("expected 1 wallet row, got %d", len(rows))
	}
	if stored := f.holdingRepo.Holdings(first.Wallet.ID); len(stored) != 1 {
		t.Errorf("expected holdings written once, got %d rows", len(stored))
	}

	upserts := 0
	for _, call := range f.activityRepo.Calls {
		if call.Method == "Upsert" {
			upserts++
		}
	}
	if upserts != 2 {
		t.Errorf("expected activity upserted on both syncs, got %d upserts", upserts)
	}
}

func TestSyncWallet_ChainSpellingVariants(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("1.5"))
	f.reader.SetToken(testutil.TestAddress, "USDC", testutil.Decimal("250"))

	principal := testutil.PersonalPrincipal()

	first, err := f.service.SyncWallet(context.Background(), principal, testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("unexpected error on first sync: %v", err)
	}

	// A resubmission with different casing must find the stored row
	conn := entities.WalletConnection{
		Address:    testutil.TestAddress,
		Provider:   "MetaMask",
		Blockchain: "ethereum",
	}
	second, err := f.service.SyncWallet(context.Background(), principal, conn)
	if err != nil {
		t.Fatalf("unexpected error on resubmission: %v", err)
	}

	if second.Status != StatusCached {
		t.Errorf("expected status %s, got %s", StatusCached, second.Status)
	}
	if second.Wallet.ID != first.Wallet.ID {
		t.Errorf("expected the same wallet row, got %s and %s", first.Wallet.ID, second.Wallet.ID)
	}
	if rows := f.walletRepo.Wallets(); len(rows) != 1 {
		t.Errorf("expected 1 wallet row, got %d", len(rows))
	}

	// The lookup alone must recognize the wallet; getting there through
	// the unique-constraint fallback would re-run the full chain fetch.
	creates := 0
	for _, call := range f.walletRepo.Calls {
		if call.Method == "Create" {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("expected exactly 1 create, got %d", creates)
	}
}

func TestSyncWallet_Validation(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})

	tests := []struct {
		name  string
		conn  entities.WalletConnection
		field string
	}{
		{"missing address", entities.WalletConnection{Provider: "MetaMask", Blockchain: "Ethereum"}, "address"},
		{"missing provider", entities.WalletConnection{Address: testutil.TestAddress, Blockchain: "Ethereum"}, "provider"},
		{"missing blockchain", entities.WalletConnection{Address: testutil.TestAddress, Provider: "MetaMask"}, "blockchain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), tt.conn)

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if valErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, valErr.Field)
			}
		})
	}
}

func TestSyncWallet_UnsupportedChain(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})

	conn := entities.WalletConnection{
		Address:    testutil.TestAddress,
		Provider:   "MetaMask",
		Blockchain: "Dogecoin",
	}

	_, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), conn)

	var chainErr *registry.UnsupportedChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected UnsupportedChainError, got %v", err)
	}
	if chainErr.Name != "Dogecoin" {
		t.Errorf("unexpected chain name in error: %s", chainErr.Name)
	}
	if rows := f.walletRepo.Wallets(); len(rows) != 0 {
		t.Errorf("expected no wallet rows, got %d", len(rows))
	}
}

func TestSyncWallet_ZeroBalancesFiltered(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("0.001"))
	// every token balance defaults to zero

	result, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Holdings) != 0 {
		t.Errorf("expected no holdings for zero balances, got %d", len(result.Holdings))
	}
	if stored := f.holdingRepo.Holdings(result.Wallet.ID); len(stored) != 0 {
		t.Errorf("expected no persisted holdings, got %d", len(stored))
	}
}

func TestSyncWallet_TokenFailureDropsToken(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("1.5"))
	f.reader.TokenBalanceFunc = func(ctx context.Context, token registry.TokenConfig, address string) (decimal.Decimal, error) {
		if token.Symbol == "USDT" {
			return decimal.Zero, errors.New("execution reverted")
		}
		if token.Symbol == "USDC" {
			return testutil.Decimal("250"), nil
		}
		return decimal.Zero, nil
	}

	result, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("expected wallet to survive a single token failure, got %v", err)
	}

	if len(result.Holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(result.Holdings))
	}
	if result.Holdings[0].Symbol != "USDC" {
		t.Errorf("expected the USDC holding to survive, got %s", result.Holdings[0].Symbol)
	}
}

func TestSyncWallet_NativeOnlyChain(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("0.5"))

	conn := entities.WalletConnection{
		Address:    testutil.TestAddress,
		Provider:   "MetaMask",
		Blockchain: "Sepolia",
	}

	result, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusSynced {
		t.Errorf("expected status %s, got %s", StatusSynced, result.Status)
	}
	if result.Wallet.Balance.String() != "0.5" {
		t.Errorf("expected balance 0.5, got %s", result.Wallet.Balance.String())
	}
	if len(result.Holdings) != 0 {
		t.Errorf("expected no holdings on a native-only chain, got %d", len(result.Holdings))
	}
}

func TestSyncWallet_RefreshStale(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{RefreshIfOlderThan: time.Hour})

	stale := testutil.ExistingWallet("wallet-1", testutil.TestAddress, time.Now().Add(-2*time.Hour))
	f.walletRepo.FindByIdentityFunc = func(ctx context.Context, address, provider, blockchain string) (*entities.Wallet, error) {
		w := stale
		return &w, nil
	}
	f.walletRepo.UpdateBalanceFunc = func(ctx context.Context, walletID string, balance decimal.Decimal) error {
		if walletID != "wallet-1" {
			t.Errorf("unexpected wallet ID: %s", walletID)
		}
		if balance.String() != "2" {
			t.Errorf("expected refreshed balance 2, got %s", balance.String())
		}
		return nil
	}

	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("2"))
	f.reader.SetToken(testutil.TestAddress, "USDC", testutil.Decimal("100"))

	result, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusRefreshed {
		t.Errorf("expected status %s, got %s", StatusRefreshed, result.Status)
	}
	if result.Wallet.Balance.String() != "2" {
		t.Errorf("expected refreshed balance 2, got %s", result.Wallet.Balance.String())
	}
	if stored := f.holdingRepo.Holdings("wallet-1"); len(stored) != 1 {
		t.Errorf("expected replaced holding set of 1, got %d", len(stored))
	}
}

func TestSyncWallet_FreshWalletSkipsRefresh(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{RefreshIfOlderThan: time.Hour})

	fresh := testutil.ExistingWallet("wallet-1", testutil.TestAddress, time.Now())
	f.walletRepo.FindByIdentityFunc = func(ctx context.Context, address, provider, blockchain string) (*entities.Wallet, error) {
		w := fresh
		return &w, nil
	}
	f.reader.NativeBalanceFunc = func(ctx context.Context, address string) (decimal.Decimal, error) {
		t.Error("fresh wallet must not hit the chain")
		return decimal.Zero, nil
	}

	result, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusCached {
		t.Errorf("expected status %s, got %s", StatusCached, result.Status)
	}
	if result.Wallet.Balance.String() != "1.5" {
		t.Errorf("expected stored balance 1.5, got %s", result.Wallet.Balance.String())
	}
}

func TestSyncWallet_CreateRace(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})
	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("1.5"))
	f.reader.SetToken(testutil.TestAddress, "USDC", testutil.Decimal("250"))

	// FindByIdentity misses, then Create reports the row already exists:
	// a concurrent request won the insert between the two calls.
	winner := testutil.ExistingWallet("wallet-1", testutil.TestAddress, time.Now())
	f.walletRepo.CreateFunc = func(ctx context.Context, wallet *entities.Wallet) (*entities.Wallet, bool, error) {
		w := winner
		return &w, false, nil
	}

	result, err := f.service.SyncWallet(context.Background(), testutil.PersonalPrincipal(), testutil.EthereumConnection(testutil.TestAddress))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Wallet.ID != "wallet-1" {
		t.Errorf("expected the winning row, got wallet %s", result.Wallet.ID)
	}
	if result.Status != StatusCached {
		t.Errorf("expected status %s for the race loser, got %s", StatusCached, result.Status)
	}

	// the loser must not write a second holding set
	for _, call := range f.holdingRepo.Calls {
		if call.Method == "CreateBatch" {
			t.Error("race loser wrote holdings")
		}
	}
}

func TestRefreshWallet(t *testing.T) {
	f := newSyncFixture(t, config.SyncConfig{})

	wallet := testutil.ExistingWallet("wallet-1", testutil.TestAddress, time.Now().Add(-time.Hour))
	f.walletRepo.UpdateBalanceFunc = func(ctx context.Context, walletID string, balance decimal.Decimal) error {
		return nil
	}

	f.reader.SetNative(testutil.TestAddress, testutil.Decimal("3.25"))
	f.reader.SetToken(testutil.TestAddress, "USDT", testutil.Decimal("42"))

	if err := f.service.RefreshWallet(context.Background(), &wallet); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wallet.Balance.String() != "3.25" {
		t.Errorf("expected balance 3.25, got %s", wallet.Balance.String())
	}
	stored := f.holdingRepo.Holdings("wallet-1")
	if len(stored) != 1 || stored[0].Symbol != "USDT" {
		t.Errorf("expected a single USDT holding, got %+v", stored)
	}
}
