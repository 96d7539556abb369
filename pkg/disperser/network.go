package disperser

import (
	"errors"
	"fmt"
	"strings"
)

// HoleskyTarget is the public testnet disperser.
const HoleskyTarget = "disperser-holesky.eigenda.xyz:443"

// ErrMainnetUnavailable is returned for mainnet until permissionless access
// exists; mainnet accounts must be registered manually.
var ErrMainnetUnavailable = errors.New("permissionless access to mainnet is not yet available")

// Target resolves a network name to a disperser address. An explicit
// endpoint always wins.
func Target(network, endpoint string) (string, error) {
	if endpoint != "" {
		return endpoint, nil
	}
	switch strings.ToLower(network) {
	case "", "holesky", "testnet":
		return HoleskyTarget, nil
	case "mainnet":
		return "", ErrMainnetUnavailable
	default:
		return "", fmt.Errorf("unknown network %q", network)
	}
}
