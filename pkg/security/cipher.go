package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Cipher encrypts and decrypts secret payloads using AES-256-GCM. The
// ciphertext, IV, and authentication tag are kept as separate fields so
// stored secrets can be audited without parsing a combined blob.
type Cipher struct {
	key []byte
}

// NewCipher creates a cipher from a raw 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes for AES-256, got %d", KeySize, len(key))
	}
	return &Cipher{key: key}, nil
}

// NewCipherFromPassphrase creates a cipher from an arbitrary passphrase.
// The passphrase is stretched with SHA-256 to derive the key.
func NewCipherFromPassphrase(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	return NewCipher(DeriveKey(passphrase))
}

// NewEphemeralCipher creates a cipher with a random key. Secrets encrypted
// with it are unrecoverable after the process exits; use only when no
// master key is configured.
func NewEphemeralCipher() (*Cipher, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	return NewCipher(key)
}

// DeriveKey derives a 32-byte key from a passphrase using SHA-256.
func DeriveKey(passphrase string) []byte {
	hash := sha256.Sum256([]byte(passphrase))
	return hash[:]
}

// Encrypt encrypts plaintext and returns the ciphertext, the random IV,
// and the GCM authentication tag as separate byte slices.
func (c *Cipher) Encrypt(plaintext []byte) (ciphertext, iv, tag []byte, err error) {
	if len(plaintext) == 0 {
		return nil, nil, nil, fmt.Errorf("cannot encrypt empty data")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	iv = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the tag to the ciphertext; split them for storage.
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()
	return sealed[:tagStart], iv, sealed[tagStart:], nil
}

// Decrypt reverses Encrypt. Any tampering with ciphertext, IV, or tag
// fails authentication and returns an error.
func (c *Cipher) Decrypt(ciphertext, iv, tag []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("cannot decrypt empty data")
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(iv) != gcm.NonceSize() {
		return nil, fmt.Errorf("invalid IV length %d", len(iv))
	}
	if len(tag) != gcm.Overhead() {
		return nil, fmt.Errorf("invalid auth tag length %d", len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// Wipe overwrites a buffer with zeros. Callers wipe plaintext buffers as
// soon as the resolved values have been copied out.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
