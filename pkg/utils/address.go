package utils

import (
	"strings"
)

// IsHexStyle reports whether address looks like a 0x-prefixed hex address.
func IsHexStyle(address string) bool {
	a := strings.TrimSpace(address)
	return len(a) > 2 && (strings.HasPrefix(a, "0x") || strings.HasPrefix(a, "0X"))
}

// NormalizeAddress trims whitespace and lower-cases hex-style addresses. Other
// encodings (base58, base64url) are case-sensitive and kept as-is.
func NormalizeAddress(address string) string {
	a := strings.TrimSpace(address)
	if IsHexStyle(a) {
		return "0x" + strings.ToLower(a[2:])
	}
	return a
}

// ShortAddress abbreviates an address for chat output
func ShortAddress(address string) string {
	if len(address) <= 14 {
		return address
	}
	return address[:8] + "…" + address[len(address)-6:]
}
