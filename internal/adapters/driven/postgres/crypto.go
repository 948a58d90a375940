package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// blobVersion is the version byte for the encrypted blob format.
	// This allows future format changes while maintaining backward compatibility.
	blobVersion = 0x01

	// nonceSize is the AES-GCM nonce size (12 bytes is standard)
	nonceSize = 12

	// keySize is the required key size for AES-256
	keySize = 32
)

var (
	// ErrEmptySecret is returned when no master secret is configured.
	ErrEmptySecret = errors.New("content encryption secret is empty")

	// ErrInvalidBlobSize is returned when the encrypted blob is too small.
	ErrInvalidBlobSize = errors.New("encrypted blob is too small")

	// ErrUnsupportedVersion is returned when the blob version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported blob version")

	// ErrDecryptionFailed is returned when decryption fails (wrong key or corrupted data).
	ErrDecryptionFailed = errors.New("failed to decrypt blob")
)

// ContentEncryptor handles AES-256-GCM encryption of cached attachment
// content. Attachment bodies come from external systems (mail, github), so
// they do not sit in the database as plain text.
// The encrypted format is: version(1) || nonce(12) || ciphertext(N)
type ContentEncryptor struct {
	gcm cipher.AEAD
}

// NewContentEncryptor derives an AES-256 key from the master secret with
// HKDF-SHA256 and returns an encryptor. Deriving instead of using the secret
// directly keeps the content key separable from any other key the same
// secret may back.
func NewContentEncryptor(masterSecret string) (*ContentEncryptor, error) {
	if masterSecret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, keySize)
	kdf := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte("recall-core/source-content"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive content key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &ContentEncryptor{gcm: gcm}, nil
}

// Encrypt encrypts plaintext to a blob.
// Format: version(1) || nonce(12) || ciphertext
func (e *ContentEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 1+nonceSize+len(ciphertext))
	blob[0] = blobVersion
	copy(blob[1:1+nonceSize], nonce)
	copy(blob[1+nonceSize:], ciphertext)

	return blob, nil
}

// Decrypt decrypts a blob produced by Encrypt.
func (e *ContentEncryptor) Decrypt(blob []byte) ([]byte, error) {
	minSize := 1 + nonceSize + e.gcm.Overhead()
	if len(blob) < minSize {
		return nil, ErrInvalidBlobSize
	}

	version := blob[0]
	if version != blobVersion {
		return nil, fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, version)
	}

	nonce := blob[1 : 1+nonceSize]
	ciphertext := blob[1+nonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
