package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "0xABCDEF1234", expected: "0xabcdef1234"},
		{name: "trims whitespace", input: "  0xabc  ", expected: "0xabc"},
		{name: "empty stays empty", input: "", expected: ""},
		{name: "already normalized", input: "0xabc123", expected: "0xabc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeAddress(tt.input))
		})
	}
}

func TestStripNonHex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "keeps hex digits of the 0x prefix", input: "0x1234abcd", expected: "01234abcd"},
		{name: "strips separators", input: "12-34:ab cd", expected: "1234abcd"},
		{name: "keeps hex letters only", input: "xyz123", expected: "123"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripNonHex(tt.input))
		})
	}
}

func TestIsAddressValid(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{name: "valid lowercase", address: "0x" + repeatHex(40), valid: true},
		{name: "valid mixed case", address: "0xAbCd" + repeatHex(36), valid: true},
		{name: "missing prefix", address: repeatHex(42), valid: false},
		{name: "too short", address: "0x" + repeatHex(39), valid: false},
		{name: "too long", address: "0x" + repeatHex(41), valid: false},
		{name: "non hex characters", address: "0x" + repeatHex(38) + "zz", valid: false},
		{name: "empty", address: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsAddressValid(tt.address))
		})
	}
}

func TestIsTransactionHash(t *testing.T) {
	assert.True(t, IsTransactionHash("0x"+repeatHex(64)))
	assert.False(t, IsTransactionHash("0x"+repeatHex(40)), "addresses are not hashes")
	assert.False(t, IsTransactionHash(repeatHex(64)), "prefix is required")
	assert.False(t, IsTransactionHash(""))
}

func repeatHex(n int) string {
	const digits = "0123456789abcdef"
	out := make([]byte, n)
	for i := range out {
		out[i] = digits[i%len(digits)]
	}
	return string(out)
}
