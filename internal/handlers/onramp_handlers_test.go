package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinapp-api/internal/db"
)

// scanFunc adapts a closure to pgx.Row.
type scanFunc func(dest ...interface{}) error

func (f scanFunc) Scan(dest ...interface{}) error { return f(dest...) }

// profileOnlyDB is a DBTX that answers the profile lookup with a fixed row
// and every wallet lookup with no rows.
type profileOnlyDB struct {
	profileID  uuid.UUID
	authUserID uuid.UUID
}

func (d *profileOnlyDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *profileOnlyDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func (d *profileOnlyDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	if strings.Contains(sql, "FROM profiles") {
		return scanFunc(func(dest ...interface{}) error {
			*dest[0].(*uuid.UUID) = d.profileID
			*dest[1].(*uuid.UUID) = d.authUserID
			*dest[2].(*pgtype.Text) = pgtype.Text{String: "user@example.com", Valid: true}
			*dest[3].(*pgtype.Timestamptz) = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			*dest[4].(*pgtype.Timestamptz) = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			return nil
		})
	}
	return scanFunc(func(dest ...interface{}) error { return pgx.ErrNoRows })
}

func TestOnrampHandler_CreateOnrampSession_InvalidBody(t *testing.T) {
	handler := NewOnrampHandler(&CommonServices{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/onramp", strings.NewReader(`{"chain":`))
	c.Request.Header.Set("Content-Type", "application/json")
	handler.CreateOnrampSession(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "Invalid request format")
}

func TestOnrampHandler_CreateOnrampSession_Unauthenticated(t *testing.T) {
	handler := NewOnrampHandler(&CommonServices{})

	w := postJSON(handler.CreateOnrampSession, "/onramp", gin.H{"chain": "polygon"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "Not authenticated")
}

func TestOnrampHandler_CreateOnrampSession_NoWalletOnChain(t *testing.T) {
	authUserID := uuid.New()
	queries := db.New(&profileOnlyDB{profileID: uuid.New(), authUserID: authUserID})
	handler := NewOnrampHandler(&CommonServices{db: queries})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/onramp", strings.NewReader(`{"chain":"polygon"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("supabase_id", authUserID.String())
	handler.CreateOnrampSession(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "Wallet not found")
}
