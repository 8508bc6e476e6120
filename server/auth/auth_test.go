package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/Daskott/rightguard/server/auth/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})))
	require.Nil(t, err)

	return keyPair
}

func TestEncodeDecodeJWT(t *testing.T) {
	keyPair := newKeyPair(t)

	token, err := EncodeJWT(NewClaims("u1", "jane@example.com", time.Hour), keyPair)
	require.Nil(t, err)

	claims, err := DecodeJWT(context.Background(), token, keyPair)
	require.Nil(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestDecodeJWTRejectsInvalidTokens(t *testing.T) {
	keyPair := newKeyPair(t)

	expired, err := EncodeJWT(NewClaims("u1", "", -time.Hour), keyPair)
	require.Nil(t, err)

	otherKey, err := EncodeJWT(NewClaims("u1", "", time.Hour), newKeyPair(t))
	require.Nil(t, err)

	noSubject, err := EncodeJWT(NewClaims("", "", time.Hour), keyPair)
	require.Nil(t, err)

	cases := []struct {
		description string
		token       string
	}{
		{"Should reject an expired token", expired},
		{"Should reject a token signed by another key", otherKey},
		{"Should reject a token without a subject", noSubject},
		{"Should reject garbage", "not.a.jwt"},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			claims, err := DecodeJWT(context.Background(), c.token, keyPair)
			assert.Nil(t, claims)
			assert.NotNil(t, err)
		})
	}
}
