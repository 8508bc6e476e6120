package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/Daskott/rightguard/server/auth/key"
	"github.com/golang-jwt/jwt"
)

const Issuer = "rightguard"

type RightGuardClaims struct {
	Email string `json:"email,omitempty"`
	jwt.StandardClaims
}

// KeySource resolves the public key a token was signed with
type KeySource interface {
	LookupPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// NewClaims returns claims for userID that expire after ttl
func NewClaims(userID, email string, ttl time.Duration) RightGuardClaims {
	now := time.Now()
	return RightGuardClaims{
		Email: email,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
}

func EncodeJWT(claims RightGuardClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(ctx context.Context, tokenString string, keys KeySource) (*RightGuardClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RightGuardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, _ := token.Header["kid"].(string)
		return keys.LookupPublicKey(ctx, kid)
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*RightGuardClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to RightGuardClaims")
	}

	if tokenClaims.Subject == "" {
		return nil, fmt.Errorf("invalid jwt: missing subject")
	}

	return tokenClaims, nil
}
