package helpers

import "strings"

// NormalizeAddress canonicalizes a blockchain address for comparison:
// surrounding whitespace is trimmed and the hex digits are lowercased.
// An empty result means the input can never match anything.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// StripNonHex removes every character that is not a lowercase hex digit.
// Used for the fuzzy address comparison mode, which has to tolerate
// inconsistent 0x-prefixing and stray separators between the provider
// and what was stored locally.
func StripNonHex(address string) string {
	var b strings.Builder
	b.Grow(len(address))
	for _, c := range strings.ToLower(address) {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// IsAddressValid checks if the provided string is a valid Ethereum address
// It verifies:
// 1. The address is exactly 42 characters long (including 0x prefix)
// 2. The address starts with "0x"
// 3. The remaining 40 characters are valid hexadecimal
func IsAddressValid(address string) bool {
	// Check length
	if len(address) != 42 {
		return false
	}

	// Check "0x" prefix
	if !strings.HasPrefix(address, "0x") {
		return false
	}

	// Check if the address contains only hex characters after the 0x prefix
	for _, c := range address[2:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}

	return true
}

// IsTransactionHash reports whether s looks like a 32-byte EVM transaction
// hash: "0x" followed by exactly 64 hex characters.
func IsTransactionHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
