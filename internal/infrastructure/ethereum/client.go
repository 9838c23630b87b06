package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

// balanceOf(address) function selector, first 4 bytes of the keccak256 hash
var balanceOfSig = common.FromHex("0x70a08231")

// Client wraps an EVM JSON-RPC connection for one chain, exposing the two
// read-only balance queries the sync pipeline needs.
type Client struct {
	client *ethclient.Client
	chain  registry.ChainConfig
	cfg    config.ChainsConfig
	logger *zap.Logger
}

// NewClient dials the chain's configured RPC endpoint and verifies the node
// actually serves the expected chain ID.
func NewClient(chain registry.ChainConfig, cfg config.ChainsConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(chain.RPCURL)
	if err != nil {
		return nil, &RPCError{Chain: chain.Name, Op: "dial", Err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, &RPCError{Chain: chain.Name, Op: "chain_id", Err: err}
	}

	if chainID.Int64() != chain.ChainID {
		client.Close()
		// A node serving the wrong chain is a per-chain fault like any
		// other RPC failure; it must not escalate past the chain boundary.
		return nil, &RPCError{
			Chain: chain.Name,
			Op:    "chain_id",
			Err:   fmt.Errorf("expected chain ID %d, got %d", chain.ChainID, chainID.Int64()),
		}
	}

	logger.Info("Connected to chain node",
		zap.String("chain", chain.Name),
		zap.String("rpc_url", chain.RPCURL),
		zap.Int64("chain_id", chainID.Int64()),
	)

	return &Client{
		client: client,
		chain:  chain,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	c.client.Close()
}

// Chain returns the chain this client is connected to
func (c *Client) Chain() registry.ChainConfig {
	return c.chain
}

// NativeBalance returns the chain's intrinsic currency balance for an
// address, converted to a human-readable decimal (18 decimals on every
// supported EVM chain).
func (c *Client) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var raw *big.Int

	err := c.withRetry(ctx, "get_balance", func(callCtx context.Context) error {
		var callErr error
		raw, callErr = c.client.BalanceAt(callCtx, common.HexToAddress(address), nil)
		return callErr
	})
	if err != nil {
		return decimal.Zero, err
	}

	return FromBaseUnits(raw, 18), nil
}

// TokenBalance returns an ERC-20 balance for an address via a raw eth_call
// of balanceOf(address), converted with the token's declared decimals.
func (c *Client) TokenBalance(ctx context.Context, token registry.TokenConfig, address string) (decimal.Decimal, error) {
	contract := common.HexToAddress(token.Address)
	holder := common.HexToAddress(address)

	// calldata: 4-byte selector + the holder address left-padded to 32 bytes
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSig...)
	data = append(data, common.LeftPadBytes(holder.Bytes(), 32)...)

	msg := goethereum.CallMsg{
		To:   &contract,
		Data: data,
	}

	var result []byte
	err := c.withRetry(ctx, "balance_of", func(callCtx context.Context) error {
		var callErr error
		result, callErr = c.client.CallContract(callCtx, msg, nil)
		return callErr
	})
	if err != nil {
		return decimal.Zero, err
	}

	if len(result) == 0 {
		return decimal.Zero, &RPCError{
			Chain: c.chain.Name,
			Op:    "balance_of",
			Err:   fmt.Errorf("empty result from %s", token.Address),
		}
	}

	raw := new(big.Int).SetBytes(result)
	return FromBaseUnits(raw, token.Decimals), nil
}

// withRetry runs an RPC call under a per-attempt timeout, retrying up to
// MaxRetries before giving up with an RPCError.
func (c *Client) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	var err error

	for i := 0; i <= c.cfg.MaxRetries; i++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		err = call(callCtx)
		cancel()

		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			break
		}

		c.logger.Warn("RPC call failed, retrying",
			zap.String("chain", c.chain.Name),
			zap.String("op", op),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)

		if i < c.cfg.MaxRetries {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return &RPCError{Chain: c.chain.Name, Op: op, Err: ctx.Err()}
			}
		}
	}

	return &RPCError{Chain: c.chain.Name, Op: op, Err: err}
}
