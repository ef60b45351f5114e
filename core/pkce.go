package core

import "golang.org/x/oauth2"

const PKCEMethodS256 = "S256"

// NewPKCEVerifier returns a 43 character verifier built from 32 random bytes.
func NewPKCEVerifier() string {
	return oauth2.GenerateVerifier()
}

// PKCEChallenge is base64url(SHA-256(verifier)) without padding.
func PKCEChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
