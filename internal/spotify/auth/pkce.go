package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const (
	// codeVerifierLength is the length of the PKCE code verifier.
	// The authorization server requires 43-128 characters.
	codeVerifierLength = 64

	// stateLength is the length of the CSRF state parameter.
	stateLength = 32
)

// PKCE holds the verifier/challenge pair and state for one login
// attempt. It is consumed exactly once by the code exchange.
type PKCE struct {
	Verifier  string
	Challenge string
	State     string
}

// NewPKCE generates a fresh code verifier, its S256 challenge, and a
// random state value.
func NewPKCE() (*PKCE, error) {
	verifier, err := randomURLSafe(codeVerifierLength)
	if err != nil {
		return nil, err
	}
	state, err := randomURLSafe(stateLength)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(verifier))
	return &PKCE{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
		State:     state,
	}, nil
}

// randomURLSafe returns a cryptographically random string of the given
// length using the base64url alphabet.
func randomURLSafe(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(buf)
	return encoded[:length], nil
}
