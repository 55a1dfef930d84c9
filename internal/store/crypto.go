package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for passphrase-based key derivation. Changing these
// invalidates existing store files, so they are fixed per envelope version.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	keyLen     = 32
	saltLen    = 16
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, keyLen)
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("store: generate salt: %w", err)
	}
	return salt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("store: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("store: create GCM: %w", err)
	}
	return aead, nil
}

// seal encrypts data with AES-256-GCM and returns the nonce prepended to the
// ciphertext.
func seal(key, data []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("store: generate nonce: %w", err)
	}
	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	return aead.Seal(nonce, nonce, data, nil), nil
}

// unseal extracts the nonce from the front of data and decrypts the
// remainder. A GCM authentication failure almost always means a wrong
// passphrase and is reported as ErrBadPassphrase.
func unseal(key, data []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonceSize := aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("store: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plaintext, nil
}
