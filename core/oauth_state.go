package core

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const oauthNonceBytes = 32

func NewAuthState(userID string, orgID string) (AuthState, error) {
	nonce, err := generateNonce()
	if err != nil {
		return AuthState{}, err
	}
	return AuthState{Nonce: nonce, UserID: userID, OrgID: orgID}, nil
}

// Encode returns the base64url form carried in the state query parameter.
func (s AuthState) Encode() (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("core: encode oauth state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

// DecodeAuthState accepts padded and unpadded base64 in both alphabets.
func DecodeAuthState(encoded string) (AuthState, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return AuthState{}, fmt.Errorf("core: oauth state is required")
	}
	payload, err := decodeBase64(encoded)
	if err != nil {
		return AuthState{}, fmt.Errorf("core: oauth state is not valid base64: %w", err)
	}
	return parseAuthState(payload)
}

func parseAuthState(payload []byte) (AuthState, error) {
	var state AuthState
	if err := json.Unmarshal(payload, &state); err != nil {
		return AuthState{}, fmt.Errorf("core: oauth state is not valid json: %w", err)
	}
	if strings.TrimSpace(state.Nonce) == "" {
		return AuthState{}, fmt.Errorf("core: oauth state nonce is required")
	}
	return state, nil
}

func decodeBase64(value string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	}
	var firstErr error
	for _, encoding := range encodings {
		decoded, err := encoding.DecodeString(value)
		if err == nil {
			return decoded, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

func generateNonce() (string, error) {
	buf := make([]byte, oauthNonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("core: generate oauth nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
