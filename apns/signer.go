package apns

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Signer produces a signed provider token from a set of claims. The
// default implementation signs with ES256; tests substitute their own.
type Signer interface {
	Sign(claims jwt.MapClaims, keyID string) (string, error)
}

// ES256Signer signs provider tokens with an APNs auth key (.p8).
type ES256Signer struct {
	key *ecdsa.PrivateKey
}

func NewES256Signer(key *ecdsa.PrivateKey) *ES256Signer {
	return &ES256Signer{key: key}
}

func (s *ES256Signer) Sign(claims jwt.MapClaims, keyID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = keyID
	return token.SignedString(s.key)
}

var ErrInvalidAuthKey = errors.New("apns: auth key must be a PEM-encoded PKCS#8 EC private key")

// AuthKeyFromFile loads a .p8 auth key downloaded from the developer
// portal.
func AuthKeyFromFile(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("apns: failed to read auth key: %w", err)
	}
	return AuthKeyFromBytes(data)
}

// AuthKeyFromBytes parses PEM-encoded PKCS#8 auth key material.
func AuthKeyFromBytes(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrInvalidAuthKey
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("apns: failed to parse auth key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, ErrInvalidAuthKey
	}
	return key, nil
}
