// Package signing implements the HMAC tokens embedded in share links. A link
// stays valid for the lifetime of the file, so the token covers only the file
// id, not an expiry.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer generates and validates share-link tokens.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Token returns the hex share token for a file id.
func (s *Signer) Token(fileID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fileID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the provided token with the expected one in constant time.
func (s *Signer) Verify(fileID, token string) bool {
	expected := s.Token(fileID)
	return hmac.Equal([]byte(expected), []byte(token))
}
