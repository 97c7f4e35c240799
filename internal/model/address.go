package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the mint/burn endpoint; it never accumulates positions.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress validates and lowercases a hex address.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address: %s", address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// IsZeroAddress reports whether the address is the zero endpoint.
func IsZeroAddress(address string) bool {
	return strings.EqualFold(address, ZeroAddress)
}
