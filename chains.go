package checkout

import (
	"fmt"
	"strconv"
	"strings"
)

// CAIP-2 network identifiers for supported deployments.
const (
	// NetworkLisk is Lisk mainnet.
	NetworkLisk = "eip155:1135"

	// NetworkLiskSepolia is the Lisk Sepolia testnet.
	NetworkLiskSepolia = "eip155:4202"
)

// TokenConfig describes the settlement token of a deployment.
type TokenConfig struct {
	// Address is the token contract address.
	Address string

	// Symbol is the token symbol (e.g., "IDRX").
	Symbol string

	// Decimals is the number of decimal places for the token.
	Decimals int

	// Name is an optional human-readable token name.
	Name string
}

// ChainConfig holds the deployment configuration for one chain: the
// gateway contract and the settlement token the checkout accepts there.
type ChainConfig struct {
	// Network is the CAIP-2 network identifier.
	Network string

	// ChainID is the EVM chain id.
	ChainID int64

	// Gateway is the payment gateway contract address.
	Gateway string

	// Token is the settlement token configuration.
	Token TokenConfig
}

// LiskMainnet is the production deployment on Lisk.
// Gateway and IDRX addresses verified against the deployed checkout.
var LiskMainnet = ChainConfig{
	Network: NetworkLisk,
	ChainID: 1135,
	Gateway: "0x8D5680a242F0Ec85153881F89a48150691826123",
	Token: TokenConfig{
		Address:  "0x18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22",
		Symbol:   "IDRX",
		Decimals: 2,
		Name:     "IDRX",
	},
}

// Validate checks that the configuration is complete enough to settle with.
func (c ChainConfig) Validate() error {
	if c.Network == "" || c.ChainID == 0 {
		return fmt.Errorf("%w: missing network", ErrNotConfigured)
	}
	if c.Gateway == "" {
		return fmt.Errorf("%w: missing gateway contract address", ErrNotConfigured)
	}
	if c.Token.Address == "" {
		return fmt.Errorf("%w: missing token address", ErrNotConfigured)
	}
	if c.Token.Decimals < 0 {
		return fmt.Errorf("%w: negative token decimals", ErrNotConfigured)
	}
	return nil
}

// ChainIDFromNetwork extracts the numeric chain id from an eip155 CAIP-2
// network identifier. Returns ErrInvalidNetwork for non-EVM namespaces.
func ChainIDFromNetwork(network string) (int64, error) {
	parts := strings.SplitN(network, ":", 2)
	if len(parts) != 2 || parts[0] != "eip155" {
		return 0, ErrInvalidNetwork
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidNetwork
	}
	return id, nil
}
