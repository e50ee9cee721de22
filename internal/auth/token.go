// Package auth resolves the access token used to authenticate against the
// buckets backend.
//
// Resolution follows an explicit precedence chain: an explicit value passed
// by the caller, then the environment variable aliases, then a token file in
// the local secrets directory. The first provider that yields a value wins.
package auth

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variable aliases checked for the access token, in order
var envAliases = []string{
	"WORKFLOW_TOKEN",
	"BUCKETS_TOKEN",
	"WORKFLOW_API_TOKEN",
}

// TokenFileName is the token file name under the secrets directory
const TokenFileName = "token"

// Provider returns a candidate token value and whether it is usable
type Provider func() (string, bool)

// DefaultSecretsDir returns the default secrets directory,
// ~/.config/workflow/secrets
func DefaultSecretsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "workflow", "secrets")
	}
	return filepath.Join(home, ".config", "workflow", "secrets")
}

// Explicit wraps a caller-supplied token as a Provider
func Explicit(token string) Provider {
	return func() (string, bool) {
		return token, token != ""
	}
}

// Env returns a Provider reading one environment variable
func Env(key string) Provider {
	return func() (string, bool) {
		value := os.Getenv(key)
		return value, value != ""
	}
}

// File returns a Provider reading the token file under dir
func File(dir string) Provider {
	return func() (string, bool) {
		data, err := os.ReadFile(filepath.Join(dir, TokenFileName))
		if err != nil {
			return "", false
		}
		token := strings.TrimSpace(string(data))
		return token, token != ""
	}
}

// Chain tries each provider in order and returns the first hit
func Chain(providers ...Provider) (string, bool) {
	for _, p := range providers {
		if token, ok := p(); ok {
			return token, true
		}
	}
	return "", false
}

// DefaultChain builds the standard resolution chain for an explicit token
// and the default secrets directory
func DefaultChain(explicit string) []Provider {
	providers := []Provider{Explicit(explicit)}
	for _, key := range envAliases {
		providers = append(providers, Env(key))
	}
	return append(providers, File(DefaultSecretsDir()))
}

// Resolve returns the access token using the standard chain. An empty string
// means no token is configured; the backend decides whether that is
// acceptable.
func Resolve(explicit string) string {
	token, _ := Chain(DefaultChain(explicit)...)
	return token
}
