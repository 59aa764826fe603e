package reconcile

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"coinapp-api/internal/client/circle"
	"coinapp-api/internal/logger"
)

// PublicKeySource fetches the provider public key for a given rotation key id.
type PublicKeySource interface {
	GetNotificationPublicKey(ctx context.Context, keyID string) (*circle.PublicKeyResponse, error)
}

// SignatureVerifier checks webhook payload authenticity against Circle's
// rotating notification signing keys. Fetched keys are cached per key id for
// the lifetime of the process; rotation introduces a new id rather than
// replacing an existing key.
type SignatureVerifier struct {
	keys PublicKeySource

	mu    sync.RWMutex
	cache map[string]crypto.PublicKey
}

// NewSignatureVerifier creates a verifier backed by the given key source.
func NewSignatureVerifier(keys PublicKeySource) *SignatureVerifier {
	return &SignatureVerifier{
		keys:  keys,
		cache: make(map[string]crypto.PublicKey),
	}
}

// Verify reports whether signature (base64) is a valid signature over the
// exact rawBody bytes under the key identified by keyID. Any failure along
// the way, including a key fetch error, yields false: verification fails
// closed.
//
// Callers must pass the body bytes exactly as received on the wire. Verifying
// a re-serialized copy produces false negatives whenever key order or
// whitespace differs from the provider's serialization.
func (v *SignatureVerifier) Verify(ctx context.Context, rawBody []byte, signature, keyID string) bool {
	if signature == "" || keyID == "" {
		return false
	}

	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		logger.Log.Warn("Webhook signature is not valid base64", zap.Error(err))
		return false
	}

	pub, err := v.publicKey(ctx, keyID)
	if err != nil {
		logger.Log.Error("Failed to obtain webhook signing key, rejecting delivery",
			zap.String("keyId", keyID),
			zap.Error(err))
		return false
	}

	digest := sha256.Sum256(rawBody)

	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(key, digest[:], sigBytes)
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sigBytes) == nil
	default:
		logger.Log.Error("Webhook signing key has unsupported type", zap.String("keyId", keyID))
		return false
	}
}

func (v *SignatureVerifier) publicKey(ctx context.Context, keyID string) (crypto.PublicKey, error) {
	v.mu.RLock()
	cached, ok := v.cache[keyID]
	v.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resp, err := v.keys.GetNotificationPublicKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if resp.Data.PublicKey == "" {
		return nil, errors.New("public key response is empty")
	}

	pub, err := parsePublicKey(resp.Data.PublicKey)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[keyID] = pub
	v.mu.Unlock()
	return pub, nil
}

// parsePublicKey converts Circle's raw base64 key material into a parsed
// public key. The API returns the DER bytes base64-encoded without PEM
// armor, so the key is wrapped at 64 characters per line before decoding.
func parsePublicKey(rawBase64 string) (crypto.PublicKey, error) {
	pemKey := wrapPEM(rawBase64)
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode public key PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse public key")
	}
	return pub, nil
}

func wrapPEM(rawBase64 string) string {
	const lineLen = 64
	var b []byte
	b = append(b, "-----BEGIN PUBLIC KEY-----\n"...)
	for i := 0; i < len(rawBase64); i += lineLen {
		end := i + lineLen
		if end > len(rawBase64) {
			end = len(rawBase64)
		}
		b = append(b, rawBase64[i:end]...)
		b = append(b, '\n')
	}
	b = append(b, "-----END PUBLIC KEY-----\n"...)
	return string(b)
}
