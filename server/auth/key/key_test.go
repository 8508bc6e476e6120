package key

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatePem(t *testing.T) string {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}))
}

func TestNewKeyPairFromRSAPrivateKeyPem(t *testing.T) {
	keyPair, err := NewKeyPairFromRSAPrivateKeyPem(generatePem(t))
	require.Nil(t, err)
	assert.Equal(t, DefaultKid, keyPair.Kid)
	assert.Equal(t, &keyPair.PrivateKey.PublicKey, keyPair.PublicKey)

	_, err = NewKeyPairFromRSAPrivateKeyPem("not a pem")
	assert.NotNil(t, err)
}

func TestJWKRoundTrip(t *testing.T) {
	keyPair, err := NewKeyPairFromRSAPrivateKeyPem(generatePem(t))
	require.Nil(t, err)

	jwk, err := keyPair.JWK()
	require.Nil(t, err)
	assert.Equal(t, DefaultKid, jwk.KeyID())

	publicKey, err := PublicKeyFromJWK(jwk)
	require.Nil(t, err)
	assert.Equal(t, keyPair.PublicKey.N, publicKey.N)
}

func TestKeyPairLookupPublicKey(t *testing.T) {
	keyPair, err := NewKeyPairFromRSAPrivateKeyPem(generatePem(t))
	require.Nil(t, err)

	publicKey, err := keyPair.LookupPublicKey(context.Background(), "")
	require.Nil(t, err)
	assert.Equal(t, keyPair.PublicKey, publicKey)

	_, err = keyPair.LookupPublicKey(context.Background(), "other")
	assert.NotNil(t, err)
}

func TestRemoteKeySet(t *testing.T) {
	keyPair, err := NewKeyPairFromRSAPrivateKeyPem(generatePem(t))
	require.Nil(t, err)
	jwk, err := keyPair.JWK()
	require.Nil(t, err)

	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ExportJWKAsJWKS(jwk))
	}))
	defer ts.Close()

	keySet := NewRemoteKeySet(ts.URL, time.Hour)

	publicKey, err := keySet.LookupPublicKey(context.Background(), DefaultKid)
	require.Nil(t, err)
	assert.Equal(t, keyPair.PublicKey.N, publicKey.N)

	_, err = keySet.LookupPublicKey(context.Background(), DefaultKid)
	require.Nil(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "keys should be cached")

	_, err = keySet.LookupPublicKey(context.Background(), "rotated")
	assert.NotNil(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "unknown kid should force a refresh")
}
