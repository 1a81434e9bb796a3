package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Checksum digests the full serialized state bound to the per-session token
// and the server-wide secret. json.Marshal is canonical for our shapes
// (fixed struct field order, map keys sorted), so equal states always
// produce equal digests. Despite the name this is SHA-256, not a lightweight
// checksum: recovering or forging state from the digest is not feasible
// without both secrets.
func Checksum(state GameState, sessionToken, serverSecret string) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("serialize game state: %w", err)
	}
	h := sha256.New()
	h.Write(raw)
	h.Write([]byte(sessionToken))
	h.Write([]byte(serverSecret))
	return hex.EncodeToString(h.Sum(nil)), nil
}
