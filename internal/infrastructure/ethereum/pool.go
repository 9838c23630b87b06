package ethereum

import (
	"sync"

	"go.uber.org/zap"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

// poolEntry holds one chain's connection attempt. ready closes when the
// dial settles; waiters then read client or err without further locking.
type poolEntry struct {
	ready  chan struct{}
	client *Client
	err    error
}

// ClientPool dials chains lazily and reuses one connection per chain for
// the lifetime of the process. The pool lock only guards the map: the dial
// itself runs unlocked, so a slow or unreachable node on one chain never
// blocks syncs on the others. A failed dial is evicted, so the next wallet
// that needs the chain retries it.
type ClientPool struct {
	cfg    config.ChainsConfig
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*poolEntry
}

// NewClientPool creates an empty pool
func NewClientPool(cfg config.ChainsConfig, logger *zap.Logger) *ClientPool {
	return &ClientPool{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*poolEntry),
	}
}

// ForChain returns the pooled client for a chain, dialing it on first use.
// Concurrent callers for the same chain share a single dial.
func (p *ClientPool) ForChain(chain registry.ChainConfig) (*Client, error) {
	p.mu.Lock()
	if entry, ok := p.clients[chain.Name]; ok {
		p.mu.Unlock()
		<-entry.ready
		return entry.client, entry.err
	}

	entry := &poolEntry{ready: make(chan struct{})}
	p.clients[chain.Name] = entry
	p.mu.Unlock()

	client, err := NewClient(chain, p.cfg, p.logger)
	if err != nil {
		entry.err = err
		close(entry.ready)

		p.mu.Lock()
		delete(p.clients, chain.Name)
		p.mu.Unlock()
		return nil, err
	}

	entry.client = client
	close(entry.ready)
	return client, nil
}

// Close waits out in-flight dials and closes every pooled connection
func (p *ClientPool) Close() {
	p.mu.Lock()
	entries := make([]*poolEntry, 0, len(p.clients))
	for _, entry := range p.clients {
		entries = append(entries, entry)
	}
	p.clients = make(map[string]*poolEntry)
	p.mu.Unlock()

	for _, entry := range entries {
		<-entry.ready
		if entry.client != nil {
			entry.client.Close()
		}
	}
}
