// Package encryption seals payloads before they are published. Blobs on the
// network are public, so anything private must be encrypted client side.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Method enumerates supported encryption algorithms.
type Method string

const (
	// MethodNone skips encryption entirely.
	MethodNone Method = "none"
	// MethodAES256GCM seals data with AES-256-GCM and a random 12-byte nonce.
	MethodAES256GCM Method = "aes-256-gcm"
	// MethodXChaCha20Poly1305 seals data with XChaCha20-Poly1305 and a random
	// 24-byte nonce.
	MethodXChaCha20Poly1305 Method = "xchacha20-poly1305"
)

// KeySize is the key length every method requires.
const KeySize = 32

// version is authenticated with every sealed payload.
const version byte = 0x01

// ErrCiphertextTooShort is returned when input cannot hold a nonce and tag.
var ErrCiphertextTooShort = errors.New("encryption: ciphertext too short")

// Options describes how to encrypt or decrypt payloads.
type Options struct {
	Method Method
	Key    []byte
}

// Enabled reports whether encryption should run.
func (o Options) Enabled() bool {
	return o.Method != "" && o.Method != MethodNone
}

// Validate ensures the configuration is usable for the selected method.
func (o Options) Validate() error {
	if !o.Enabled() {
		return nil
	}
	switch o.Method {
	case MethodAES256GCM, MethodXChaCha20Poly1305:
		if len(o.Key) != KeySize {
			return fmt.Errorf("encryption: %s requires %d-byte key, got %d", o.Method, KeySize, len(o.Key))
		}
	default:
		return fmt.Errorf("encryption: unsupported method %q", o.Method)
	}
	return nil
}

// Encrypt returns [version][nonce][ciphertext+tag]. Disabled options return
// data unchanged.
func Encrypt(data []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !opts.Enabled() {
		return data, nil
	}
	aead, err := newAEAD(opts)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(data)+aead.Overhead())
	out[0] = version
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, err
	}
	nonce := out[1:]
	return aead.Seal(out, nonce, data, out[:1]), nil
}

// Decrypt reverses Encrypt using opts.
func Decrypt(ciphertext []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !opts.Enabled() {
		return ciphertext, nil
	}
	aead, err := newAEAD(opts)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < 1+aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	if ciphertext[0] != version {
		return nil, fmt.Errorf("encryption: unknown version %d", ciphertext[0])
	}
	nonce := ciphertext[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, ciphertext[1+aead.NonceSize():], ciphertext[:1])
	if err != nil {
		return nil, fmt.Errorf("encryption: open: %w", err)
	}
	return plaintext, nil
}

// Overhead returns the number of bytes added by the given method.
func Overhead(method Method) int {
	switch method {
	case MethodAES256GCM:
		return 1 + 12 + 16
	case MethodXChaCha20Poly1305:
		return 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	default:
		return 0
	}
}

func newAEAD(opts Options) (cipher.AEAD, error) {
	switch opts.Method {
	case MethodAES256GCM:
		block, err := aes.NewCipher(opts.Key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case MethodXChaCha20Poly1305:
		return chacha20poly1305.NewX(opts.Key)
	default:
		return nil, fmt.Errorf("encryption: unsupported method %q", opts.Method)
	}
}
