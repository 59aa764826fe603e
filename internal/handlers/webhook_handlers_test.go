package handlers

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"coinapp-api/internal/client/circle"
	"coinapp-api/internal/db"
	"coinapp-api/internal/logger"
	"coinapp-api/internal/reconcile"
)

func init() {
	logger.InitLogger("test")
	gin.SetMode(gin.TestMode)
}

type fakeKeySource struct {
	publicKey string
}

func (f *fakeKeySource) GetNotificationPublicKey(ctx context.Context, keyID string) (*circle.PublicKeyResponse, error) {
	resp := &circle.PublicKeyResponse{}
	resp.Data.ID = keyID
	resp.Data.PublicKey = f.publicKey
	return resp, nil
}

type mockTransactionStore struct {
	mock.Mock
}

func (m *mockTransactionStore) GetTransactionByCircleID(ctx context.Context, circleTransactionID string) (db.Transaction, error) {
	args := m.Called(ctx, circleTransactionID)
	return args.Get(0).(db.Transaction), args.Error(1)
}

func (m *mockTransactionStore) CreateTransaction(ctx context.Context, arg db.CreateTransactionParams) (db.Transaction, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.Transaction), args.Error(1)
}

func (m *mockTransactionStore) UpdateTransactionStatus(ctx context.Context, arg db.UpdateTransactionStatusParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, address, blockchain string) (db.Wallet, error) {
	args := m.Called(ctx, address, blockchain)
	return args.Get(0).(db.Wallet), args.Error(1)
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) Refresh(ctx context.Context, wallet db.Wallet, chainName string) string {
	args := m.Called(ctx, wallet, chainName)
	return args.String(0)
}

type webhookFixture struct {
	handler  *WebhookHandler
	signer   *ecdsa.PrivateKey
	store    *mockTransactionStore
	resolver *mockResolver
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	assert.NoError(t, err)

	verifier := reconcile.NewSignatureVerifier(&fakeKeySource{
		publicKey: base64.StdEncoding.EncodeToString(der),
	})
	store := new(mockTransactionStore)
	resolver := new(mockResolver)
	refresher := new(mockRefresher)
	refresher.On("Refresh", mock.Anything, mock.Anything, mock.Anything).Return("0").Maybe()

	reconciler := reconcile.NewReconciler(store, resolver, refresher)
	common := NewCommonServices(nil, nil, nil, verifier, reconciler, nil, nil)
	return &webhookFixture{
		handler:  NewWebhookHandler(common),
		signer:   key,
		store:    store,
		resolver: resolver,
	}
}

func (f *webhookFixture) sign(t *testing.T, body []byte) string {
	t.Helper()
	digest := sha256.Sum256(body)
	sig, err := ecdsa.SignASN1(rand.Reader, f.signer, digest[:])
	assert.NoError(t, err)
	return base64.StdEncoding.EncodeToString(sig)
}

func (f *webhookFixture) post(body []byte, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/webhooks/circle", bytes.NewReader(body))
	for k, v := range headers {
		c.Request.Header.Set(k, v)
	}
	f.handler.HandleCircleNotification(c)
	return w
}

func TestHandleCircleNotification_MissingHeaders(t *testing.T) {
	f := newWebhookFixture(t)

	w := f.post([]byte(`{}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing signature or keyId"}`, w.Body.String())

	w = f.post([]byte(`{}`), map[string]string{"x-circle-signature": "c2ln"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.post([]byte(`{}`), map[string]string{"x-circle-key-id": "key-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCircleNotification_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)

	body := []byte(`{"notificationType":"transfers","notification":{"id":"tx1","state":"COMPLETE"}}`)
	w := f.post(body, map[string]string{
		"x-circle-signature": base64.StdEncoding.EncodeToString([]byte("wrong")),
		"x-circle-key-id":    "key-1",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Invalid signature"}`, w.Body.String())
	f.store.AssertNotCalled(t, "GetTransactionByCircleID")
	f.store.AssertNotCalled(t, "CreateTransaction")
}

func TestHandleCircleNotification_ValidSignatureAcknowledges(t *testing.T) {
	f := newWebhookFixture(t)

	f.store.On("GetTransactionByCircleID", mock.Anything, "tx1").
		Return(db.Transaction{ID: "tx1", Status: "COMPLETE"}, nil)
	f.resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).
		Return(db.Wallet{}, reconcile.ErrWalletNotFound)

	body := []byte(`{"notificationType":"transfers","notification":{"id":"tx1","state":"COMPLETE","walletAddress":"0xaaa"}}`)
	w := f.post(body, map[string]string{
		"x-circle-signature": f.sign(t, body),
		"x-circle-key-id":    "key-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestHandleCircleNotification_ReconcileFailureStillAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)

	f.store.On("GetTransactionByCircleID", mock.Anything, "tx1").
		Return(db.Transaction{}, errors.New("connection refused"))

	body := []byte(`{"notificationType":"transfers","notification":{"id":"tx1","state":"COMPLETE","walletAddress":"0xaaa"}}`)
	w := f.post(body, map[string]string{
		"x-circle-signature": f.sign(t, body),
		"x-circle-key-id":    "key-1",
	})

	// Retrying the delivery would fail the same way, so it is acknowledged.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}

func TestHandleCircleNotification_UnparseableBody(t *testing.T) {
	f := newWebhookFixture(t)

	body := []byte(`{"notification":{}}`)
	w := f.post(body, map[string]string{
		"x-circle-signature": f.sign(t, body),
		"x-circle-key-id":    "key-1",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to process notification"}`, w.Body.String())
}

func TestHandleCircleNotification_UnknownTypeStillAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)

	body := []byte(`{"notificationType":"webhooks.test","notification":{}}`)
	w := f.post(body, map[string]string{
		"x-circle-signature": f.sign(t, body),
		"x-circle-key-id":    "key-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	f.store.AssertNotCalled(t, "CreateTransaction")
}

func TestHandleCircleNotificationHead(t *testing.T) {
	f := newWebhookFixture(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodHead, "/api/webhooks/circle", nil)
	f.handler.HandleCircleNotificationHead(c)

	assert.Equal(t, http.StatusOK, w.Code)
}
