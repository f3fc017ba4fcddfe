package coinbase

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "coinbase-cloud"
	tokenTTL    = 2 * time.Minute
)

// SignedRequest is a freshly minted authentication token bound to one
// method and path. It is created per outbound call and never cached: the
// uri claim means a captured token cannot be replayed against a different
// endpoint or method.
type SignedRequest struct {
	Method    string
	Path      string
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type apiClaims struct {
	jwt.RegisteredClaims
	URI string `json:"uri"`
}

// Signer builds ES256 tokens for the exchange API. Signing is pure
// computation; no network I/O happens here.
type Signer struct {
	creds CredentialProvider
	host  string
	now   func() time.Time
}

// NewSigner creates a signer whose uri claims are bound to the host of
// apiURL.
func NewSigner(creds CredentialProvider, apiURL string) *Signer {
	host := apiURL
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return &Signer{
		creds: creds,
		host:  host,
		now:   time.Now,
	}
}

// Sign produces a token for one method+path pair. Credentials are resolved
// on every call; a ConfigError means they are absent, an AuthError means
// they are present but malformed.
func (s *Signer) Sign(method, path string) (SignedRequest, error) {
	creds, err := s.creds.Resolve()
	if err != nil {
		return SignedRequest{}, err
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(creds.PrivateKeyPEM))
	if err != nil {
		return SignedRequest{}, &AuthError{Err: err}
	}

	now := s.now()
	expires := now.Add(tokenTTL)

	claims := apiClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   creds.KeyName,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		URI: fmt.Sprintf("%s %s%s", method, s.host, path),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = creds.KeyName
	// Crypto-random rather than time-derived so rapid successive calls
	// never collide.
	token.Header["nonce"] = uuid.NewString()

	signed, err := token.SignedString(key)
	if err != nil {
		return SignedRequest{}, &AuthError{Err: err}
	}

	return SignedRequest{
		Method:    method,
		Path:      path,
		Token:     signed,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}
