package core

import (
	"net/url"
	"strings"
)

type KeyPurpose string

const (
	KeyPurposeState       KeyPurpose = "state"
	KeyPurposeVerifier    KeyPurpose = "verifier"
	KeyPurposeCredentials KeyPurpose = "credentials"
)

// StoreKey builds {purpose}:{provider}:{orgId}:{userId}. Every segment is
// url.QueryEscape'd, so keys seen in Redis or SQL only match that layout
// literally for plain ids: org "a:b" is stored as "a%3Ab".
func StoreKey(purpose KeyPurpose, providerID string, orgID string, userID string) string {
	return strings.Join([]string{
		url.QueryEscape(strings.TrimSpace(string(purpose))),
		url.QueryEscape(NormalizeProviderID(providerID)),
		url.QueryEscape(strings.TrimSpace(orgID)),
		url.QueryEscape(strings.TrimSpace(userID)),
	}, ":")
}
