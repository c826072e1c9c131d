package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the ERC20 token a swap view asks to scan.
type Token struct {
	ChainID uint64 `json:"chain_id"`
	Address string `json:"address"`
	Symbol  string `json:"symbol,omitempty"`
}

// Key identifies one cached risk lookup.
type Key struct {
	ChainID uint64
	Address string
}

// KeyOf returns the fetch key for token. A nil token has no key.
func KeyOf(token *Token) (Key, bool) {
	if token == nil {
		return Key{}, false
	}
	return Key{ChainID: token.ChainID, Address: token.Address}, true
}

// String returns a stable identifier usable as a map or singleflight key.
func (k Key) String() string {
	return "risk:" + strconv.FormatUint(k.ChainID, 10) + ":" + k.Address
}

// ParseToken validates the address and returns a token with a checksummed address.
func ParseToken(chainID uint64, address string) (Token, error) {
	address = strings.TrimSpace(address)
	if chainID == 0 {
		return Token{}, fmt.Errorf("chain id is required")
	}
	if !common.IsHexAddress(address) {
		return Token{}, fmt.Errorf("invalid address: %s", address)
	}
	return Token{
		ChainID: chainID,
		Address: common.HexToAddress(address).Hex(),
	}, nil
}

// ParseChainID parses a decimal chain identifier.
func ParseChainID(input string) (uint64, error) {
	val, err := strconv.ParseUint(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id: %s", input)
	}
	if val == 0 {
		return 0, fmt.Errorf("chain id must be positive")
	}
	return val, nil
}
