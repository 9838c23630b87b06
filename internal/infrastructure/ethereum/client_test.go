package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/david-dina/Crypto-PP-sub000/internal/config"
	"github.com/david-dina/Crypto-PP-sub000/internal/registry"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode is a minimal JSON-RPC endpoint. Each method handler returns the
// hex-encoded result or an error.
func fakeNode(t *testing.T, handlers map[string]func(req rpcRequest) (string, error)) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		handler, ok := handlers[req.Method]
		if !ok {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method not found"}}`, req.ID)
			return
		}

		result, err := handler(req)
		if err != nil {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32000,"message":%q}}`, req.ID, err.Error())
			return
		}
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%q}`, req.ID, result)
	}))

	t.Cleanup(server.Close)
	return server
}

func testChainsConfig() config.ChainsConfig {
	return config.ChainsConfig{
		RequestTimeout: 5 * time.Second,
		MaxRetries:     0,
		RetryDelay:     time.Millisecond,
	}
}

func chainIDHandler(hexID string) func(req rpcRequest) (string, error) {
	return func(rpcRequest) (string, error) { return hexID, nil }
}

func TestNewClient(t *testing.T) {
	t.Run("verifies the node serves the expected chain", func(t *testing.T) {
		server := fakeNode(t, map[string]func(req rpcRequest) (string, error){
			"eth_chainId": chainIDHandler("0x1"),
		})

		chain := registry.ChainConfig{ChainID: 1, Name: "Ethereum", RPCURL: server.URL}
		client, err := NewClient(chain, testChainsConfig(), zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer client.Close()

		if client.Chain().Name != "Ethereum" {
			t.Errorf("unexpected chain: %s", client.Chain().Name)
		}
	})

	t.Run("rejects a chain ID mismatch as an RPC error", func(t *testing.T) {
		server := fakeNode(t, map[string]func(req rpcRequest) (string, error){
			"eth_chainId": chainIDHandler("0x38"),
		})

		chain := registry.ChainConfig{ChainID: 1, Name: "Ethereum", RPCURL: server.URL}
		_, err := NewClient(chain, testChainsConfig(), zap.NewNop())
		if err == nil {
			t.Fatal("expected chain ID mismatch error")
		}

		// The mismatch must stay skippable at the batch boundary, so it
		// has to carry the RPC error type.
		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			t.Fatalf("expected RPCError, got %T", err)
		}
		if rpcErr.Chain != "Ethereum" || rpcErr.Op != "chain_id" {
			t.Errorf("unexpected error detail: chain=%s op=%s", rpcErr.Chain, rpcErr.Op)
		}
	})
}

func TestClient_NativeBalance(t *testing.T) {
	t.Run("converts wei to an exact decimal", func(t *testing.T) {
		server := fakeNode(t, map[string]func(req rpcRequest) (string, error){
			"eth_chainId": chainIDHandler("0x1"),
			"eth_getBalance": func(rpcRequest) (string, error) {
				// 1.5 ETH in wei
				return "0x14d1120d7b160000", nil
			},
		})

		chain := registry.ChainConfig{ChainID: 1, Name: "Ethereum", RPCURL: server.URL}
		client, err := NewClient(chain, testChainsConfig(), zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer client.Close()

		balance, err := client.NativeBalance(context.Background(), "0x1234567890123456789012345678901234567890")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if balance.String() != "1.5" {
			t.Errorf("expected 1.5, got %s", balance.String())
		}
	})

	t.Run("wraps node failures as RPCError", func(t *testing.T) {
		server := fakeNode(t, map[string]func(req rpcRequest) (string, error){
			"eth_chainId": chainIDHandler("0x1"),
			"eth_getBalance": func(rpcRequest) (string, error) {
				return "", errors.New("node overloaded")
			},
		})

		chain := registry.ChainConfig{ChainID: 1, Name: "Ethereum", RPCURL: server.URL}
		client, err := NewClient(chain, testChainsConfig(), zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer client.Close()

		_, err = client.NativeBalance(context.Background(), "0x1234567890123456789012345678901234567890")
		if err == nil {
			t.Fatal("expected error")
		}

		var rpcErr *RPCError
		if !errors.As(err, &rpcErr) {
			t.Fatalf("expected RPCError, got %T", err)
		}
		if rpcErr.Chain != "Ethereum" {
			t.Errorf("unexpected chain in error: %s", rpcErr.Chain)
		}
	})
}

func TestClient_TokenBalance(t *testing.T) {
	usdc, _ := registry.TokenByAddress("ethereum", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	holder := "0x1234567890123456789012345678901234567890"

	t.Run("issues balanceOf and converts through token decimals", func(t *testing.T) {
		var gotCalldata string

		server := fakeNode(t, map[string]func(req rpcRequest) (string, error){
			"eth_chainId": chainIDHandler("0x1"),
			"eth_call": func(req rpcRequest) (string, error) {
				var call struct {
					To   string `json:"to"`
					Data string `json:"data"`
				}
				if err := json.Unmarshal(req.Params[0], &call); err != nil {
					return "", err
				}
				gotCalldata = call.Data
				// 250 USDC in 6-decimal base units
				return "0x000000000000000000000000000000000000000000000000000000000ee6b280", nil
			},
		})

		chain := registry.ChainConfig{ChainID: 1, Name: "Ethereum", RPCURL: server.URL}
		client, err := NewClient(chain, testChainsConfig(), zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer client.Close()

		balance, err := client.TokenBalance(context.Background(), usdc, holder)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if balance.String() != "250" {
			t.Errorf("expected 250, got %s", balance.String())
		}

		// selector + 32-byte padded holder address
		wantCalldata := "0x70a082310000000000000000000000001234567890123456789012345678901234567890"
		if !strings.EqualFold(gotCalldata, wantCalldata) {
			t.Errorf("unexpected calldata: %s", gotCalldata)
		}
	})

	t.Run("treats a zero word as zero balance", func(t *testing.T) {
		server := fakeNode(t, map[string]func(req rpcRequest) (string, error){
			"eth_chainId": chainIDHandler("0x1"),
			"eth_call": func(rpcRequest) (string, error) {
				return "0x0000000000000000000000000000000000000000000000000000000000000000", nil
			},
		})

		chain := registry.ChainConfig{ChainID: 1, Name: "Ethereum", RPCURL: server.URL}
		client, err := NewClient(chain, testChainsConfig(), zap.NewNop())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer client.Close()

		balance, err := client.TokenBalance(context.Background(), usdc, holder)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !balance.IsZero() {
			t.Errorf("expected zero, got %s", balance.String())
		}
	})
}

func TestClient_Retry(t *testing.T) {
	attempts := 0
	server := fakeNode(t, map[string]func(req rpcRequest) (string, error){
		"eth_chainId": chainIDHandler("0x1"),
		"eth_getBalance": func(rpcRequest) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("transient")
			}
			return "0xde0b6b3a7640000", nil // 1 ETH
		},
	})

	cfg := testChainsConfig()
	cfg.MaxRetries = 3

	chain := registry.ChainConfig{ChainID: 1, Name: "Ethereum", RPCURL: server.URL}
	client, err := NewClient(chain, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	balance, err := client.NativeBalance(context.Background(), "0x1234567890123456789012345678901234567890")
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if balance.String() != "1" {
		t.Errorf("expected 1, got %s", balance.String())
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}
