package coinbase

import (
	"encoding/base64"
	"os"
	"strings"
)

// Environment variables holding the API credential material.
const (
	EnvAPIKey        = "COINBASE_API_KEY"
	EnvPrivateKey    = "COINBASE_PRIVATE_KEY"
	EnvPrivateKeyB64 = "COINBASE_PRIVATE_KEY_B64"
)

// Credentials is the normalized signing material for the exchange API:
// the key name used as both subject and kid, and the EC private key in
// PEM form.
type Credentials struct {
	KeyName       string
	PrivateKeyPEM string
}

// CredentialProvider resolves credentials at the moment of use. Resolution
// happens per call rather than at startup because some deployment models
// inject secrets after the process has started.
type CredentialProvider interface {
	Resolve() (Credentials, error)
}

// EnvCredentials resolves credentials from the environment on every call.
//
// The PEM may arrive with escaped newlines and wrapping quotes (a common
// artifact of copy-pasting into a deployment UI), or base64-encoded under
// COINBASE_PRIVATE_KEY_B64. The base64 form is a fallback only, consulted
// when the direct form is absent.
type EnvCredentials struct{}

func (EnvCredentials) Resolve() (Credentials, error) {
	keyName := strings.TrimSpace(os.Getenv(EnvAPIKey))

	pem := normalizeKeyMaterial(os.Getenv(EnvPrivateKey))
	if pem == "" {
		if encoded := strings.TrimSpace(os.Getenv(EnvPrivateKeyB64)); encoded != "" {
			if raw, err := base64.StdEncoding.DecodeString(encoded); err == nil {
				pem = normalizeKeyMaterial(string(raw))
			}
		}
	}

	var missing []string
	if keyName == "" {
		missing = append(missing, EnvAPIKey)
	}
	if pem == "" {
		missing = append(missing, EnvPrivateKey)
	}
	if len(missing) > 0 {
		return Credentials{}, &ConfigError{Missing: missing}
	}

	return Credentials{KeyName: keyName, PrivateKeyPEM: pem}, nil
}

// StaticCredentials is a fixed-value provider, used in tests.
type StaticCredentials Credentials

func (s StaticCredentials) Resolve() (Credentials, error) {
	return Credentials(s), nil
}

// normalizeKeyMaterial strips wrapping quotes, converts escaped newline
// sequences to real line breaks and drops carriage returns.
func normalizeKeyMaterial(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}
