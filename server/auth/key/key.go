package key

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwk"
)

const DefaultKid = "rightguard-key-id"

type JWKS struct {
	Keys []interface{} `json:"keys"`
}

type KeyPair struct {
	Kid        string
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// NewKeyPairFromRSAPrivateKeyPem parses a PKCS1 or PKCS8 encoded RSA private key
func NewKeyPairFromRSAPrivateKeyPem(privateKeyPem string) (*KeyPair, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPem))
	if err != nil {
		return nil, fmt.Errorf("unable to parse RSA private key: %v", err)
	}

	return &KeyPair{
		Kid:        DefaultKid,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey}, nil
}

func (keyPair *KeyPair) JWK() (jwk.Key, error) {
	keyPairJWK, err := jwk.New(keyPair.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("JWK: %v", err)
	}
	keyPairJWK.Set(jwk.KeyIDKey, keyPair.Kid)
	keyPairJWK.Set(jwk.AlgorithmKey, "RS256")
	keyPairJWK.Set(jwk.KeyUsageKey, "sig")

	return keyPairJWK, nil
}

// LookupPublicKey resolves kid to the pair's public key. An empty kid matches.
func (keyPair *KeyPair) LookupPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid != "" && kid != keyPair.Kid {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return keyPair.PublicKey, nil
}

func ExportJWKAsJWKS(jwk jwk.Key) JWKS {
	return JWKS{Keys: []interface{}{jwk}}
}

func PublicKeyFromJWK(key jwk.Key) (*rsa.PublicKey, error) {
	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, err
	}

	publicKey, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key %q is not an RSA public key", key.KeyID())
	}

	return publicKey, nil
}

// RemoteKeySet resolves verification keys from an auth provider's JWKS endpoint
type RemoteKeySet struct {
	url     string
	ttl     time.Duration
	mu      sync.Mutex
	set     jwk.Set
	fetched time.Time
}

func NewRemoteKeySet(url string, ttl time.Duration) *RemoteKeySet {
	return &RemoteKeySet{url: url, ttl: ttl}
}

func (ks *RemoteKeySet) LookupPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	set, err := ks.keys(ctx, false)
	if err != nil {
		return nil, err
	}

	key, ok := set.LookupKeyID(kid)
	if !ok {
		// the provider may have rotated keys since the last fetch
		if set, err = ks.keys(ctx, true); err != nil {
			return nil, err
		}
		if key, ok = set.LookupKeyID(kid); !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
	}

	return PublicKeyFromJWK(key)
}

func (ks *RemoteKeySet) keys(ctx context.Context, refresh bool) (jwk.Set, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if !refresh && ks.set != nil && time.Since(ks.fetched) < ks.ttl {
		return ks.set, nil
	}

	set, err := jwk.Fetch(ctx, ks.url)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch jwks from %v: %v", ks.url, err)
	}

	ks.set = set
	ks.fetched = time.Now()
	return set, nil
}
