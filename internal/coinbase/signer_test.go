package coinbase

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testKey(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	encoded := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	return key, string(encoded)
}

func testSigner(t *testing.T) (*Signer, *ecdsa.PrivateKey) {
	t.Helper()
	key, pemText := testKey(t)
	creds := StaticCredentials{KeyName: "organizations/test/apiKeys/key-1", PrivateKeyPEM: pemText}
	return NewSigner(creds, "https://api.coinbase.com"), key
}

func parseToken(t *testing.T, token string, key *ecdsa.PrivateKey) (*apiClaims, map[string]any) {
	t.Helper()
	var claims apiClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return &key.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("token not valid")
	}
	return &claims, parsed.Header
}

func TestSignBindsMethodAndPath(t *testing.T) {
	signer, key := testSigner(t)

	signed, err := signer.Sign("GET", "/api/v3/brokerage/accounts")
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	claims, header := parseToken(t, signed.Token, key)
	if want := "GET api.coinbase.com/api/v3/brokerage/accounts"; claims.URI != want {
		t.Errorf("uri claim = %q, want %q", claims.URI, want)
	}
	if claims.Issuer != "coinbase-cloud" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
	if claims.Subject != "organizations/test/apiKeys/key-1" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if header["kid"] != "organizations/test/apiKeys/key-1" {
		t.Errorf("kid header = %v", header["kid"])
	}
	if nonce, _ := header["nonce"].(string); nonce == "" {
		t.Error("nonce header missing")
	}
}

func TestSignExpiryIsExactlyTwoMinutes(t *testing.T) {
	signer, key := testSigner(t)
	fixed := time.Now()
	signer.now = func() time.Time { return fixed }

	signed, err := signer.Sign("POST", "/api/v3/brokerage/orders")
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if got := signed.ExpiresAt.Sub(signed.IssuedAt); got != 2*time.Minute {
		t.Errorf("expiry window = %v, want 2m", got)
	}

	claims, _ := parseToken(t, signed.Token, key)
	if got := claims.ExpiresAt.Time.Sub(claims.NotBefore.Time); got != 2*time.Minute {
		t.Errorf("claimed expiry window = %v, want 2m", got)
	}
}

func TestSignNoncesDoNotRepeat(t *testing.T) {
	signer, key := testSigner(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		signed, err := signer.Sign("GET", "/api/v3/brokerage/accounts")
		if err != nil {
			t.Fatalf("Sign returned error: %v", err)
		}
		_, header := parseToken(t, signed.Token, key)
		nonce := header["nonce"].(string)
		if seen[nonce] {
			t.Fatalf("nonce %q repeated", nonce)
		}
		seen[nonce] = true
	}
}

func TestSignMalformedKeyIsAuthError(t *testing.T) {
	creds := StaticCredentials{KeyName: "key-1", PrivateKeyPEM: "not a pem key"}
	signer := NewSigner(creds, "https://api.coinbase.com")

	_, err := signer.Sign("GET", "/api/v3/brokerage/accounts")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestSignMissingCredentialsIsConfigError(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvPrivateKey, "")
	t.Setenv(EnvPrivateKeyB64, "")

	signer := NewSigner(EnvCredentials{}, "https://api.coinbase.com")
	_, err := signer.Sign("GET", "/api/v3/brokerage/accounts")

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if len(cfgErr.Missing) != 2 {
		t.Errorf("missing = %v, want both variables", cfgErr.Missing)
	}
}
