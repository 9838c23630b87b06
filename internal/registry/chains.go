package registry

import (
	"fmt"
	"strings"
)

// ChainConfig describes one supported blockchain network. Instances are
// immutable after Init; lookups are safe for unsynchronized concurrent reads.
type ChainConfig struct {
	ChainID          int64
	HexChainID       string
	Name             string
	RPCURL           string
	BlockExplorerURL string
	NativeSymbol     string

	// NativeOnly marks chains (test networks) that legitimately carry an
	// empty token list.
	NativeOnly bool
}

// supportedChains is keyed by chain key ("ethereum", "bsc", ...). Populated
// once at package init and optionally re-pointed by Init before any lookups;
// never mutated afterward.
var supportedChains = defaultChains()

func defaultChains() map[string]ChainConfig {
	return map[string]ChainConfig{
		"ethereum": {
			ChainID:          1,
			HexChainID:       "0x1",
			Name:             "Ethereum",
			RPCURL:           "https://ethereum-rpc.publicnode.com",
			BlockExplorerURL: "https://etherscan.io",
			NativeSymbol:     "ETH",
		},
		"bsc": {
			ChainID:          56,
			HexChainID:       "0x38",
			Name:             "Binance Smart Chain",
			RPCURL:           "https://bsc-rpc.publicnode.com",
			BlockExplorerURL: "https://bscscan.com",
			NativeSymbol:     "BNB",
		},
		"polygon": {
			ChainID:          137,
			HexChainID:       "0x89",
			Name:             "Polygon",
			RPCURL:           "https://polygon-bor-rpc.publicnode.com",
			BlockExplorerURL: "https://polygonscan.com",
			NativeSymbol:     "MATIC",
		},
		"sepolia": {
			ChainID:          11155111,
			HexChainID:       "0xaa36a7",
			Name:             "Sepolia",
			RPCURL:           "https://ethereum-sepolia-rpc.publicnode.com",
			BlockExplorerURL: "https://sepolia.etherscan.io",
			NativeSymbol:     "ETH",
			NativeOnly:       true,
		},
	}
}

// Init applies per-chain RPC endpoint overrides. Must be called before the
// registry is read; it rebuilds the chain table rather than mutating it in
// place so concurrent readers never observe a partial update.
func Init(rpcOverrides map[string]string) error {
	chains := defaultChains()
	for key, url := range rpcOverrides {
		key = strings.ToLower(strings.TrimSpace(key))
		chain, ok := chains[key]
		if !ok {
			return fmt.Errorf("rpc override for unknown chain key %q", key)
		}
		chain.RPCURL = url
		chains[key] = chain
	}
	supportedChains = chains
	return nil
}

// ChainKeys returns every registered chain key.
func ChainKeys() []string {
	keys := make([]string, 0, len(supportedChains))
	for key := range supportedChains {
		keys = append(keys, key)
	}
	return keys
}

// ChainByKey returns the chain registered under the given registry key.
func ChainByKey(key string) (ChainConfig, bool) {
	chain, ok := supportedChains[strings.ToLower(key)]
	return chain, ok
}

// ChainByName finds a chain by its display name, case-insensitive.
func ChainByName(name string) (ChainConfig, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, chain := range supportedChains {
		if strings.ToLower(chain.Name) == normalized {
			return chain, true
		}
	}
	return ChainConfig{}, false
}

// ChainByHexID finds a chain by its hex chain ID (e.g. "0x89"),
// case-insensitive on the hex digits.
func ChainByHexID(hexID string) (ChainConfig, bool) {
	normalized := strings.ToLower(strings.TrimSpace(hexID))
	for _, chain := range supportedChains {
		if chain.HexChainID == normalized {
			return chain, true
		}
	}
	return ChainConfig{}, false
}

// ChainByDecimalID finds a chain by its numeric chain ID.
func ChainByDecimalID(chainID int64) (ChainConfig, bool) {
	for _, chain := range supportedChains {
		if chain.ChainID == chainID {
			return chain, true
		}
	}
	return ChainConfig{}, false
}

// IsSupportedChain reports whether a hex chain ID belongs to a registered chain.
func IsSupportedChain(hexID string) bool {
	_, ok := ChainByHexID(hexID)
	return ok
}
