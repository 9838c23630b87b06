package registry

import (
	"fmt"
	"strings"
)

// TokenKind distinguishes a chain's intrinsic currency from ERC-20 contracts.
type TokenKind string

const (
	KindNative TokenKind = "native"
	KindERC20  TokenKind = "erc20"
)

// TokenConfig describes one fungible token on one chain. Identity is
// (chain key, contract address).
type TokenConfig struct {
	Symbol     string
	Name       string
	Decimals   int32
	Address    string
	ChainKey   string
	Kind       TokenKind
	Stablecoin bool
}

// UnsupportedChainError reports a chain name that has no registry entry.
// Adding a chain requires an explicit entry; there is no fallback.
type UnsupportedChainError struct {
	Name string
}

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("unsupported chain name: %q", e.Name)
}

// supportedTokens is keyed by chain key. Same immutability contract as
// supportedChains: built once, read-only afterward.
var supportedTokens = map[string][]TokenConfig{
	"ethereum": {
		{Symbol: "ETH", Name: "Ether", Decimals: 18, Address: "", ChainKey: "ethereum", Kind: KindNative},
		{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", ChainKey: "ethereum", Kind: KindERC20, Stablecoin: true},
		{Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", ChainKey: "ethereum", Kind: KindERC20, Stablecoin: true},
		{Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", ChainKey: "ethereum", Kind: KindERC20},
	},
	"bsc": {
		{Symbol: "BNB", Name: "BNB", Decimals: 18, Address: "", ChainKey: "bsc", Kind: KindNative},
		{Symbol: "USDC", Name: "USD Coin", Decimals: 18, Address: "0x8ac76a51cc950d9822d68b83fe1ad97b32cd580d", ChainKey: "bsc", Kind: KindERC20, Stablecoin: true},
		{Symbol: "USDT", Name: "Tether USD", Decimals: 18, Address: "0x55d398326f99059ff775485246999027b3197955", ChainKey: "bsc", Kind: KindERC20, Stablecoin: true},
		{Symbol: "WBNB", Name: "Wrapped BNB", Decimals: 18, Address: "0xBB4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", ChainKey: "bsc", Kind: KindERC20},
	},
	"polygon": {
		{Symbol: "MATIC", Name: "MATIC", Decimals: 18, Address: "", ChainKey: "polygon", Kind: KindNative},
		{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", ChainKey: "polygon", Kind: KindERC20, Stablecoin: true},
		{Symbol: "USDT", Name: "Tether USD", Decimals: 6, Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", ChainKey: "polygon", Kind: KindERC20, Stablecoin: true},
		{Symbol: "WMATIC", Name: "Wrapped MATIC", Decimals: 18, Address: "0x7D1AfA7B718fb893dB30A3aBc0Cfc608AaCfeBB0", ChainKey: "polygon", Kind: KindERC20},
	},
	"sepolia": {
		{Symbol: "ETH", Name: "Sepolia Ether", Decimals: 18, Address: "", ChainKey: "sepolia", Kind: KindNative},
	},
}

// chainAliases maps common spellings to registry keys. Display names from
// the chain registry are accepted as well (see ChainNameToKey).
var chainAliases = map[string]string{
	"eth":       "ethereum",
	"ether":     "ethereum",
	"mainnet":   "ethereum",
	"bnb":       "bsc",
	"bnb chain": "bsc",
	"binance":   "bsc",
	"matic":     "polygon",
	"pol":       "polygon",
}

// ChainNameToKey normalizes a chain display name or alias to its registry
// key. Unrecognized names fail with *UnsupportedChainError; new chains need
// an explicit registry entry.
func ChainNameToKey(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "", &UnsupportedChainError{Name: name}
	}
	if _, ok := supportedTokens[normalized]; ok {
		return normalized, nil
	}
	if key, ok := chainAliases[normalized]; ok {
		return key, nil
	}
	if chain, ok := ChainByName(normalized); ok {
		for key, registered := range supportedChains {
			if registered.ChainID == chain.ChainID {
				return key, nil
			}
		}
	}
	return "", &UnsupportedChainError{Name: name}
}

// TokensForChain returns the ERC-20 tokens configured for a chain key, in
// registry order. An unknown key yields an empty slice, not an error;
// callers treat "no tokens configured" as a valid case.
func TokensForChain(chainKey string) []TokenConfig {
	var tokens []TokenConfig
	for _, token := range supportedTokens[strings.ToLower(chainKey)] {
		if token.Kind == KindERC20 {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// TokenByAddress finds a token by contract address on a chain key,
// case-insensitive on the address.
func TokenByAddress(chainKey, address string) (TokenConfig, bool) {
	normalized := strings.ToLower(address)
	for _, token := range supportedTokens[strings.ToLower(chainKey)] {
		if token.Address != "" && strings.ToLower(token.Address) == normalized {
			return token, true
		}
	}
	return TokenConfig{}, false
}

// TokenBySymbol finds a token by symbol on a chain key, case-insensitive.
func TokenBySymbol(chainKey, symbol string) (TokenConfig, bool) {
	for _, token := range supportedTokens[strings.ToLower(chainKey)] {
		if strings.EqualFold(token.Symbol, symbol) {
			return token, true
		}
	}
	return TokenConfig{}, false
}

// NativeToken returns the intrinsic currency of the chain with the given
// numeric chain ID.
func NativeToken(chainID int64) (TokenConfig, bool) {
	chain, ok := ChainByDecimalID(chainID)
	if !ok {
		return TokenConfig{}, false
	}
	key, err := ChainNameToKey(chain.Name)
	if err != nil {
		return TokenConfig{}, false
	}
	for _, token := range supportedTokens[key] {
		if token.Kind == KindNative {
			return token, true
		}
	}
	return TokenConfig{}, false
}

// Stablecoins returns the tokens flagged as stablecoins on the chain with
// the given numeric chain ID.
func Stablecoins(chainID int64) []TokenConfig {
	chain, ok := ChainByDecimalID(chainID)
	if !ok {
		return nil
	}
	key, err := ChainNameToKey(chain.Name)
	if err != nil {
		return nil
	}
	var stables []TokenConfig
	for _, token := range supportedTokens[key] {
		if token.Stablecoin {
			stables = append(stables, token)
		}
	}
	return stables
}
