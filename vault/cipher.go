package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required master key length in bytes.
const KeySize = 32

// NonceSize is the per-message nonce length. Both supported AEADs use 96 bits.
const NonceSize = 12

// Algorithm selects the AEAD construction.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM. This is the default.
	AlgorithmAESGCM Algorithm = "aes-256-gcm"
	// AlgorithmChaCha20Poly1305 is ChaCha20-Poly1305 (RFC 8439).
	AlgorithmChaCha20Poly1305 Algorithm = "chacha20-poly1305"
)

var (
	// ErrKeyMisconfigured is returned when the master key is not exactly 256 bits
	// or the cipher settings are unusable. It is a startup error.
	ErrKeyMisconfigured = errors.New("vault key misconfigured")
	// ErrDecryptFailed matches every *DecryptError via errors.Is.
	ErrDecryptFailed = errors.New("vault decrypt failed")
)

// DecryptReason classifies a decryption failure.
type DecryptReason string

const (
	// ReasonEmptyInput means the blob was empty.
	ReasonEmptyInput DecryptReason = "empty_input"
	// ReasonMalformedEncoding means the blob is not valid base64 or is too short
	// to hold a nonce and tag.
	ReasonMalformedEncoding DecryptReason = "malformed_encoding"
	// ReasonAuthenticationFailed means the tag did not verify. With an AEAD this
	// covers tampering, an AAD mismatch and a wrong key alike.
	ReasonAuthenticationFailed DecryptReason = "authentication_failed"
)

// DecryptError is the typed failure returned by [Cipher.Decrypt].
type DecryptError struct {
	Reason DecryptReason
}

func (e *DecryptError) Error() string {
	return "vault decrypt failed: " + string(e.Reason)
}

// Is reports ErrDecryptFailed as a match so callers can use errors.Is.
func (e *DecryptError) Is(target error) bool {
	return target == ErrDecryptFailed
}

// Cipher seals and opens provider tokens for one provider.
//
// Cipher instances are immutable after construction and safe for concurrent use.
type Cipher struct {
	aead     cipher.AEAD
	provider string
}

// ParseKey decodes a base64 master key (standard or URL alphabet, padded or raw)
// and checks its length.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: master key is empty", ErrKeyMisconfigured)
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		key, err := enc.DecodeString(encoded)
		if err != nil {
			continue
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("%w: master key is %d bytes, need %d", ErrKeyMisconfigured, len(key), KeySize)
		}
		return key, nil
	}
	return nil, fmt.Errorf("%w: master key is not valid base64", ErrKeyMisconfigured)
}

// NewCipher builds a Cipher from a raw 32-byte key. An empty algorithm selects
// AES-256-GCM. provider is part of every AAD and must not be empty.
func NewCipher(key []byte, algorithm Algorithm, provider string) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: master key is %d bytes, need %d", ErrKeyMisconfigured, len(key), KeySize)
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return nil, fmt.Errorf("%w: provider name required", ErrKeyMisconfigured)
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch algorithm {
	case "", AlgorithmAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrKeyMisconfigured, algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyMisconfigured, err)
	}

	return &Cipher{aead: aead, provider: provider}, nil
}

// Provider returns the provider name bound into every AAD.
func (c *Cipher) Provider() string { return c.provider }

// aad is len(provider) as a big-endian uint32, then provider, then subjectID.
// The prefix keeps ("g:x", "y") and ("g", "x:y") apart.
func (c *Cipher) aad(subjectID string) []byte {
	out := make([]byte, 4, 4+len(c.provider)+len(subjectID))
	binary.BigEndian.PutUint32(out, uint32(len(c.provider)))
	out = append(out, c.provider...)
	return append(out, subjectID...)
}

// Encrypt seals plaintext for subjectID with a fresh random nonce.
func (c *Cipher) Encrypt(plaintext, subjectID string) (string, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), c.aad(subjectID))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt for the same subjectID. It never
// returns partial plaintext; every failure is a *DecryptError.
func (c *Cipher) Decrypt(blob, subjectID string) (string, error) {
	if blob == "" {
		return "", &DecryptError{Reason: ReasonEmptyInput}
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", &DecryptError{Reason: ReasonMalformedEncoding}
	}
	if len(raw) < NonceSize+c.aead.Overhead() {
		return "", &DecryptError{Reason: ReasonMalformedEncoding}
	}

	nonce, sealed := raw[:NonceSize], raw[NonceSize:]
	plain, err := c.aead.Open(nil, nonce, sealed, c.aad(subjectID))
	if err != nil {
		return "", &DecryptError{Reason: ReasonAuthenticationFailed}
	}
	return string(plain), nil
}
