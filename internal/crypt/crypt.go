// Package crypt covers the platform's at-rest secrets: AES-GCM envelopes for
// sensitive blobs, salted password hashes, session token generation and HMAC
// signatures over outbound payloads.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength   = 64
	nonceLength  = 12
	keyLength    = 32
	pbkdf2Rounds = 100_000
)

var ErrBadCiphertext = errors.New("ciphertext malformed or tampered")

// Keyring derives per-use keys from one master secret. Passing it explicitly
// keeps multi-tenant deployments from sharing process-wide key state.
type Keyring struct {
	master []byte
}

func NewKeyring(masterSecret string) (*Keyring, error) {
	if strings.TrimSpace(masterSecret) == "" {
		return nil, errors.New("master secret is required")
	}
	return &Keyring{master: []byte(masterSecret)}, nil
}

// Encrypt seals plaintext into a base64 salt|nonce|ciphertext envelope.
// A fresh salt per call means equal plaintexts never share a key.
func (k *Keyring) Encrypt(plaintext []byte) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	gcm, err := k.aead(salt)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	envelope := make([]byte, 0, saltLength+nonceLength+len(sealed))
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, sealed...)
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens an Encrypt envelope. Any truncation or bit flip surfaces as
// ErrBadCiphertext, never as garbage plaintext.
func (k *Keyring) Decrypt(encoded string) ([]byte, error) {
	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrBadCiphertext
	}
	if len(envelope) < saltLength+nonceLength {
		return nil, ErrBadCiphertext
	}
	salt := envelope[:saltLength]
	nonce := envelope[saltLength : saltLength+nonceLength]
	sealed := envelope[saltLength+nonceLength:]

	gcm, err := k.aead(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrBadCiphertext
	}
	return plaintext, nil
}

// Sign returns a hex HMAC-SHA256 of data under the master secret.
func (k *Keyring) Sign(data []byte) string {
	mac := hmac.New(sha256.New, k.master)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a Sign output in constant time.
func (k *Keyring) VerifySignature(data []byte, signature string) bool {
	expected := k.Sign(data)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func (k *Keyring) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(k.master, salt, pbkdf2Rounds, keyLength, sha512.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}

// HashPassword returns a salt:hash pair using PBKDF2-SHA512.
func HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	hash := pbkdf2.Key([]byte(password), salt, pbkdf2Rounds, 64, sha512.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(hash), nil
}

// VerifyPassword checks a password against a HashPassword pair.
func VerifyPassword(password, stored string) bool {
	salt, wantHex, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	rawSalt, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	hash := pbkdf2.Key([]byte(password), rawSalt, pbkdf2Rounds, 64, sha512.New)
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(hash)), []byte(wantHex)) == 1
}

// NewToken returns n random bytes hex-encoded; session tokens use n=32.
func NewToken(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read token bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
