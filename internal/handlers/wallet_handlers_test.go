package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTP behavior tests without database mocking; these cover request
// validation and auth guards, which all return before any query runs.

func postJSON(handler gin.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	handler(c)
	return w
}

func TestWalletHandler_GetBalance_Validation(t *testing.T) {
	handler := NewWalletHandler(&CommonServices{})

	t.Run("missing walletId", func(t *testing.T) {
		w := postJSON(handler.GetBalance, "/wallet/balance", gin.H{"blockchain": "POLYGON"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response["error"], "Invalid walletId format")
	})

	t.Run("missing blockchain", func(t *testing.T) {
		w := postJSON(handler.GetBalance, "/wallet/balance", gin.H{"walletId": "0xaaa"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unsupported blockchain", func(t *testing.T) {
		w := postJSON(handler.GetBalance, "/wallet/balance", gin.H{
			"walletId":   "0xaaa",
			"blockchain": "SOLANA",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWalletHandler_SetupWallets_Validation(t *testing.T) {
	handler := NewWalletHandler(&CommonServices{})

	t.Run("missing credential", func(t *testing.T) {
		w := postJSON(handler.SetupWallets, "/wallet/setup", gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response["error"], "Credential is required")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		// Valid body but no supabase_id on the context.
		w := postJSON(handler.SetupWallets, "/wallet/setup", gin.H{"credential": `{"publicKey":"0x1234"}`})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestWalletHandler_UpdateCredential_Validation(t *testing.T) {
	handler := NewWalletHandler(&CommonServices{})

	w := postJSON(handler.UpdateCredential, "/wallet/credential", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "Invalid credential format")
}

func TestWalletHandler_GetCredential_Unauthenticated(t *testing.T) {
	handler := NewWalletHandler(&CommonServices{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/wallet/credential", nil)
	handler.GetCredential(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAddressFromCredential(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		expected   string
		wantErr    bool
	}{
		{
			name:       "40 hex char public key",
			credential: `{"publicKey":"0xABCDEFabcdef0123456789ABCDEFabcdef012345"}`,
			expected:   "0xabcdefabcdef0123456789abcdefabcdef012345",
		},
		{
			name:       "longer key truncated to address length",
			credential: `{"publicKey":"0xABCDEFabcdef0123456789ABCDEFabcdef0123456789"}`,
			expected:   "0xabcdefabcdef0123456789abcdefabcdef012345",
		},
		{
			name:       "key too short",
			credential: `{"publicKey":"0x1234"}`,
			wantErr:    true,
		},
		{
			name:       "not json",
			credential: `garbage`,
			wantErr:    true,
		},
		{
			name:       "missing publicKey",
			credential: `{}`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, err := addressFromCredential(tt.credential)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, address)
		})
	}
}
