package apns

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func testAuthKeyPEM(t *testing.T) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), key
}

func TestAuthKeyFromBytes(t *testing.T) {
	pemBytes, key := testAuthKeyPEM(t)

	parsed, err := AuthKeyFromBytes(pemBytes)
	if err != nil {
		t.Fatalf("AuthKeyFromBytes failed: %v", err)
	}
	if !parsed.Equal(key) {
		t.Error("Parsed key does not match the original")
	}
}

func TestAuthKeyFromBytesRejectsGarbage(t *testing.T) {
	if _, err := AuthKeyFromBytes([]byte("not a pem block")); err != ErrInvalidAuthKey {
		t.Errorf("Expected ErrInvalidAuthKey, got %v", err)
	}
}

func TestES256SignerProducesVerifiableToken(t *testing.T) {
	pemBytes, _ := testAuthKeyPEM(t)
	key, _ := AuthKeyFromBytes(pemBytes)
	signer := NewES256Signer(key)

	signed, err := signer.Sign(jwt.MapClaims{"iss": "TEAM123", "iat": int64(1700000000)}, "KEY123")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodES256 {
			t.Errorf("Expected ES256, got %v", token.Header["alg"])
		}
		return key.Public(), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("Signed token does not verify: %v", err)
	}
	if token.Header["kid"] != "KEY123" {
		t.Errorf("Expected kid header KEY123, got %v", token.Header["kid"])
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["iss"] != "TEAM123" {
		t.Errorf("Expected iss TEAM123, got %v", claims["iss"])
	}
}

func TestNewClientParsesSigningKey(t *testing.T) {
	pemBytes, _ := testAuthKeyPEM(t)

	if _, err := NewClient(Config{TeamID: "T", KeyID: "K", SigningKey: pemBytes}); err != nil {
		t.Errorf("NewClient with a valid signing key failed: %v", err)
	}
	if _, err := NewClient(Config{TeamID: "T", KeyID: "K", SigningKey: []byte("junk")}); err == nil {
		t.Error("Expected invalid signing key to fail client construction")
	}
}
