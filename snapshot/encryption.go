package snapshot

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Encryptor encrypts and decrypts a serialised Snapshot before a
// Backend writes it, so a snapshot at rest never carries document
// bytes in the clear.
type Encryptor struct {
	cipher interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
}

// NewEncryptor builds a ChaCha20-Poly1305 encryptor from a raw 32-byte
// key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("snapshot encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create chacha20poly1305 cipher: %w", err)
	}
	return &Encryptor{cipher: aead}, nil
}

// Seal encrypts plaintext, prepending a freshly generated nonce to the
// returned ciphertext.
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.cipher.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return e.cipher.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext produced by Seal.
func (e *Encryptor) Open(ciphertext []byte) ([]byte, error) {
	nonceSize := e.cipher.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("snapshot ciphertext too short")
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.cipher.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot decryption failed: %w", err)
	}
	return plaintext, nil
}

// DeriveKey derives a chacha20poly1305 key from a passphrase and salt
// using scrypt.
func DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(salt) < 16 {
		return nil, fmt.Errorf("salt must be at least 16 bytes")
	}
	key, err := scrypt.Key(passphrase, salt, 32768, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// GenerateSalt returns a random 32-byte salt for DeriveKey.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// EncryptingBackend wraps a Backend, encrypting a Snapshot's JSON
// encoding before Save and decrypting after Load, so a snapshot at
// rest never carries document bytes in the clear.
type EncryptingBackend struct {
	inner     Backend
	encryptor *Encryptor
}

// NewEncryptingBackend wraps inner so every Save/Load round-trips
// through enc.
func NewEncryptingBackend(inner Backend, enc *Encryptor) *EncryptingBackend {
	return &EncryptingBackend{inner: inner, encryptor: enc}
}

// Save seals snap's JSON encoding and stores it as an opaque
// CipherText envelope, so inner never sees a document's plaintext.
func (b *EncryptingBackend) Save(ctx context.Context, snap *Snapshot) error {
	plaintext, err := json.Marshal(snap)
	if err != nil {
		return &BackendError{Backend: "encrypting", Op: "save", Err: err}
	}
	sealed, err := b.encryptor.Seal(plaintext)
	if err != nil {
		return &BackendError{Backend: "encrypting", Op: "save", Err: err}
	}
	envelope := &Snapshot{
		DocumentID: snap.DocumentID,
		CreatedAt:  time.Now(),
		Encrypted:  true,
		CipherText: sealed,
	}
	return b.inner.Save(ctx, envelope)
}

// Load fetches documentID's envelope from inner and opens it,
// returning the original plaintext Snapshot.
func (b *EncryptingBackend) Load(ctx context.Context, documentID string) (*Snapshot, error) {
	envelope, err := b.inner.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !envelope.Encrypted {
		return envelope, nil
	}
	plaintext, err := b.encryptor.Open(envelope.CipherText)
	if err != nil {
		return nil, &BackendError{Backend: "encrypting", Op: "load", Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return nil, &BackendError{Backend: "encrypting", Op: "load", Err: err}
	}
	return &snap, nil
}

// VerifyIntegrity decrypts documentID's envelope and checksums the
// recovered plaintext exactly as an unencrypted backend would.
func (b *EncryptingBackend) VerifyIntegrity(ctx context.Context, documentID string) (*IntegrityReport, error) {
	snap, err := b.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return verifySnapshot(snap), nil
}

// Name reports the wrapped backend's identifier, prefixed to show
// encryption is active.
func (b *EncryptingBackend) Name() string { return "encrypting(" + b.inner.Name() + ")" }

// Close closes the wrapped backend.
func (b *EncryptingBackend) Close() error { return b.inner.Close() }
