package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
	"github.com/david-dina/Crypto-PP-sub000/internal/domain/repositories"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

// MockCall records one invocation on a mock
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockWalletRepository is an in-memory implementation of WalletRepository.
// Default behavior mimics the unique constraint on (address, provider,
// blockchain); function hooks override individual methods.
type MockWalletRepository struct {
	mu      sync.RWMutex
	wallets []entities.Wallet
	nextID  int

	FindByIdentityFunc func(ctx context.Context, address, provider, blockchain string) (*entities.Wallet, error)
	CreateFunc         func(ctx context.Context, wallet *entities.Wallet) (*entities.Wallet, bool, error)
	UpdateBalanceFunc  func(ctx context.Context, walletID string, balance decimal.Decimal) error
	ListByOwnerFunc    func(ctx context.Context, owner repositories.WalletOwner, limit, offset int) ([]entities.Wallet, error)
	CountByOwnerFunc   func(ctx context.Context, owner repositories.WalletOwner) (int64, error)
	ListStaleFunc      func(ctx context.Context, cutoff time.Time, limit int) ([]entities.Wallet, error)

	Calls []MockCall
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		wallets: make([]entities.Wallet, 0),
		Calls:   make([]MockCall, 0),
		nextID:  1,
	}
}

// Wallets returns a snapshot of the stored wallet rows
func (m *MockWalletRepository) Wallets() []entities.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot := make([]entities.Wallet, len(m.wallets))
	copy(snapshot, m.wallets)
	return snapshot
}

func (m *MockWalletRepository) FindByIdentity(ctx context.Context, address, provider, blockchain string) (*entities.Wallet, error) {
	m.record("FindByIdentity", address, provider, blockchain)

	if m.FindByIdentityFunc != nil {
		return m.FindByIdentityFunc(ctx, address, provider, blockchain)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.wallets {
		w := m.wallets[i]
		if w.Address == address && w.Provider == provider && w.Blockchain == blockchain {
			return &w, nil
		}
	}
	return nil, nil
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *entities.Wallet) (*entities.Wallet, bool, error) {
	m.record("Create", wallet.Address, wallet.Provider, wallet.Blockchain)

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, wallet)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.wallets {
		w := m.wallets[i]
		if w.Address == wallet.Address && w.Provider == wallet.Provider && w.Blockchain == wallet.Blockchain {
			return &w, false, nil
		}
	}

	created := *wallet
	created.ID = strconv.Itoa(m.nextID)
	m.nextID++
	now := time.Now()
	created.CreatedAt = now
	created.UpdatedAt = now
	m.wallets = append(m.wallets, created)

	result := created
	return &result, true, nil
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	m.record("UpdateBalance", walletID, balance)

	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, walletID, balance)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.wallets {
		if m.wallets[i].ID == walletID {
			m.wallets[i].Balance = balance
			m.wallets[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("wallet %s not found", walletID)
}

func (m *MockWalletRepository) ListByOwner(ctx context.Context, owner repositories.WalletOwner, limit, offset int) ([]entities.Wallet, error) {
	m.record("ListByOwner", owner, limit, offset)

	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, owner, limit, offset)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]entities.Wallet, 0)
	for _, w := range m.wallets {
		if ownerMatches(owner, w) {
			matched = append(matched, w)
		}
	}

	if offset > len(matched) {
		return []entities.Wallet{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (m *MockWalletRepository) CountByOwner(ctx context.Context, owner repositories.WalletOwner) (int64, error) {
	m.record("CountByOwner", owner)

	if m.CountByOwnerFunc != nil {
		return m.CountByOwnerFunc(ctx, owner)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, w := range m.wallets {
		if ownerMatches(owner, w) {
			count++
		}
	}
	return count, nil
}

func (m *MockWalletRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]entities.Wallet, error) {
	m.record("ListStale", cutoff, limit)

	if m.ListStaleFunc != nil {
		return m.ListStaleFunc(ctx, cutoff, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stale := make([]entities.Wallet, 0)
	for _, w := range m.wallets {
		if w.UpdatedAt.Before(cutoff) {
			stale = append(stale, w)
			if len(stale) == limit {
				break
			}
		}
	}
	return stale, nil
}

func (m *MockWalletRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func ownerMatches(owner repositories.WalletOwner, w entities.Wallet) bool {
	if owner.CompanyID != nil {
		return w.CompanyID != nil && *w.CompanyID == *owner.CompanyID
	}
	if owner.UserID != nil {
		return w.UserID != nil && *w.UserID == *owner.UserID
	}
	return false
}

// MockHoldingRepository is an in-memory implementation of HoldingRepository
type MockHoldingRepository struct {
	mu       sync.RWMutex
	holdings map[string][]entities.TokenHolding

	CreateBatchFunc      func(ctx context.Context, holdings []entities.TokenHolding) error
	ReplaceForWalletFunc func(ctx context.Context, walletID string, holdings []entities.TokenHolding) error
	GetByWalletFunc      func(ctx context.Context, walletID string) ([]entities.TokenHolding, error)
	GetByWalletsFunc     func(ctx context.Context, walletIDs []string) (map[string][]entities.TokenHolding, error)

	Calls []MockCall
}

func NewMockHoldingRepository() *MockHoldingRepository {
	return &MockHoldingRepository{
		holdings: make(map[string][]entities.TokenHolding),
		Calls:    make([]MockCall, 0),
	}
}

// Holdings returns the stored holdings for a wallet
func (m *MockHoldingRepository) Holdings(walletID string) []entities.TokenHolding {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entities.TokenHolding(nil), m.holdings[walletID]...)
}

func (m *MockHoldingRepository) CreateBatch(ctx context.Context, holdings []entities.TokenHolding) error {
	m.record("CreateBatch", holdings)

	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, holdings)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range holdings {
		m.holdings[h.WalletID] = append(m.holdings[h.WalletID], h)
	}
	return nil
}

func (m *MockHoldingRepository) ReplaceForWallet(ctx context.Context, walletID string, holdings []entities.TokenHolding) error {
	m.record("ReplaceForWallet", walletID, holdings)

	if m.ReplaceForWalletFunc != nil {
		return m.ReplaceForWalletFunc(ctx, walletID, holdings)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdings[walletID] = append([]entities.TokenHolding(nil), holdings...)
	return nil
}

func (m *MockHoldingRepository) GetByWallet(ctx context.Context, walletID string) ([]entities.TokenHolding, error) {
	m.record("GetByWallet", walletID)

	if m.GetByWalletFunc != nil {
		return m.GetByWalletFunc(ctx, walletID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entities.TokenHolding(nil), m.holdings[walletID]...), nil
}

func (m *MockHoldingRepository) GetByWallets(ctx context.Context, walletIDs []string) (map[string][]entities.TokenHolding, error) {
	m.record("GetByWallets", walletIDs)

	if m.GetByWalletsFunc != nil {
		return m.GetByWalletsFunc(ctx, walletIDs)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string][]entities.TokenHolding)
	for _, id := range walletIDs {
		if hs, ok := m.holdings[id]; ok {
			result[id] = append([]entities.TokenHolding(nil), hs...)
		}
	}
	return result, nil
}

func (m *MockHoldingRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

// MockActivityRepository is an in-memory implementation of ActivityRepository
type MockActivityRepository struct {
	mu         sync.RWMutex
	activities map[string]entities.WalletActivity

	UpsertFunc func(ctx context.Context, userID, walletID string, lastUsed time.Time) error

	Calls []MockCall
}

func NewMockActivityRepository() *MockActivityRepository {
	return &MockActivityRepository{
		activities: make(map[string]entities.WalletActivity),
		Calls:      make([]MockCall, 0),
	}
}

func (m *MockActivityRepository) Upsert(ctx context.Context, userID, walletID string, lastUsed time.Time) error {
	m.record("Upsert", userID, walletID, lastUsed)

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, walletID, lastUsed)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[userID+"/"+walletID] = entities.WalletActivity{
		UserID:   userID,
		WalletID: walletID,
		LastUsed: lastUsed,
	}
	return nil
}

func (m *MockActivityRepository) Get(ctx context.Context, userID, walletID string) (*entities.WalletActivity, error) {
	m.record("Get", userID, walletID)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if activity, ok := m.activities[userID+"/"+walletID]; ok {
		return &activity, nil
	}
	return nil, nil
}

func (m *MockActivityRepository) record(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

// MockBalanceReader is a fake chain node. Balances are keyed by address for
// the native asset and by "address/SYMBOL" for tokens; hooks override.
type MockBalanceReader struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal

	NativeBalanceFunc func(ctx context.Context, address string) (decimal.Decimal, error)
	TokenBalanceFunc  func(ctx context.Context, token registry.TokenConfig, address string) (decimal.Decimal, error)
}

func NewMockBalanceReader() *MockBalanceReader {
	return &MockBalanceReader{balances: make(map[string]decimal.Decimal)}
}

// SetNative sets the native balance for an address
func (m *MockBalanceReader) SetNative(address string, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = balance
}

// SetToken sets a token balance for an address
func (m *MockBalanceReader) SetToken(address, symbol string, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address+"/"+symbol] = balance
}

func (m *MockBalanceReader) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if m.NativeBalanceFunc != nil {
		return m.NativeBalanceFunc(ctx, address)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[address], nil
}

func (m *MockBalanceReader) TokenBalance(ctx context.Context, token registry.TokenConfig, address string) (decimal.Decimal, error) {
	if m.TokenBalanceFunc != nil {
		return m.TokenBalanceFunc(ctx, token, address)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[address+"/"+token.Symbol], nil
}
