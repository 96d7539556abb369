package encryption

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, method := range []Method{MethodAES256GCM, MethodXChaCha20Poly1305} {
		t.Run(string(method), func(t *testing.T) {
			opts := Options{Method: method, Key: bytes.Repeat([]byte{0x42}, KeySize)}
			ciphertext, err := Encrypt([]byte("top-secret"), opts)
			if err != nil {
				t.Fatalf("encrypt: %v", err)
			}
			if len(ciphertext) != len("top-secret")+Overhead(method) {
				t.Fatalf("expected ciphertext len %d, got %d", len("top-secret")+Overhead(method), len(ciphertext))
			}
			plaintext, err := Decrypt(ciphertext, opts)
			if err != nil {
				t.Fatalf("decrypt: %v", err)
			}
			if string(plaintext) != "top-secret" {
				t.Fatalf("unexpected plaintext %q", plaintext)
			}
		})
	}
}

func TestNoncesDiffer(t *testing.T) {
	opts := Options{Method: MethodXChaCha20Poly1305, Key: bytes.Repeat([]byte{0x01}, KeySize)}
	a, err := Encrypt([]byte("same"), opts)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt([]byte("same"), opts)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two encryptions produced identical output")
	}
}

func TestTamperingDetected(t *testing.T) {
	opts := Options{Method: MethodAES256GCM, Key: bytes.Repeat([]byte{0x07}, KeySize)}
	ciphertext, err := Encrypt([]byte("payload"), opts)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	flipped := append([]byte(nil), ciphertext...)
	flipped[len(flipped)-1] ^= 0xff
	if _, err := Decrypt(flipped, opts); err == nil {
		t.Fatalf("expected authentication failure")
	}
	wrongKey := Options{Method: MethodAES256GCM, Key: bytes.Repeat([]byte{0x08}, KeySize)}
	if _, err := Decrypt(ciphertext, wrongKey); err == nil {
		t.Fatalf("expected failure with wrong key")
	}
	if _, err := Decrypt(ciphertext[:5], opts); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("expected short ciphertext error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := (Options{Method: MethodAES256GCM, Key: []byte("short")}).Validate(); err == nil {
		t.Fatalf("expected key length error")
	}
	if err := (Options{Method: "rot13", Key: make([]byte, KeySize)}).Validate(); err == nil {
		t.Fatalf("expected unsupported method error")
	}
	out, err := Encrypt([]byte("plain"), Options{Method: MethodNone})
	if err != nil || string(out) != "plain" {
		t.Fatalf("disabled encryption changed data: %q, %v", out, err)
	}
}
