package verify

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var hexAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress checks account address syntax. The 0x prefix is required.
// Mixed-case input must carry a correct EIP-55 checksum; all-lower and
// all-upper hex are accepted as is.
// It says nothing about who controls the address.
func IsValidAddress(address string) bool {
	if !hexAddressRe.MatchString(address) {
		return false
	}
	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return true
	}
	return common.HexToAddress(address).Hex() == address
}

// NormalizeAddress returns the lower-case key used for wallet lookups.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
