package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"
)

var (
	ErrKeyNotFound  = errors.New("crypto: encryption key not found")
	ErrKeyNotLoaded = errors.New("crypto: no encryption key loaded")
)

const envKeyPrefix = "CREDENTIAL_ENCRYPTION_KEY"

// KeyManager holds one encryptor per key version and always writes with the
// newest. Decryption selects the version recorded in the ciphertext, so key
// rotation never locks out existing rows.
type KeyManager struct {
	mu         sync.RWMutex
	currentVer int
	encryptors map[int]*Encryptor
}

// NewKeyManager loads keys from the environment: CREDENTIAL_ENCRYPTION_KEY
// is version 1 and required, CREDENTIAL_ENCRYPTION_KEY_V2 and up are
// optional rotations. Keys are base64-encoded 32-byte values.
func NewKeyManager() (*KeyManager, error) {
	km := &KeyManager{encryptors: make(map[int]*Encryptor)}
	if err := km.loadKey(1, envKeyPrefix); err != nil {
		return nil, fmt.Errorf("crypto: primary key: %w", err)
	}
	km.currentVer = 1
	for v := 2; v <= 10; v++ {
		if err := km.loadKey(v, fmt.Sprintf("%s_V%d", envKeyPrefix, v)); err == nil {
			km.currentVer = v
		}
	}
	return km, nil
}

// NewKeyManagerFromKey builds a single-version manager around a raw key.
// Used by tests and tooling.
func NewKeyManagerFromKey(key []byte) (*KeyManager, error) {
	enc, err := NewEncryptor(key, 1)
	if err != nil {
		return nil, err
	}
	return &KeyManager{currentVer: 1, encryptors: map[int]*Encryptor{1: enc}}, nil
}

func (km *KeyManager) loadKey(version int, envName string) error {
	encoded := os.Getenv(envName)
	if encoded == "" {
		return ErrKeyNotFound
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode %s: %w", envName, err)
	}
	enc, err := NewEncryptor(key, version)
	if err != nil {
		return err
	}
	km.encryptors[version] = enc
	return nil
}

// Encrypt seals plaintext with the newest key.
func (km *KeyManager) Encrypt(plaintext string) (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	enc, ok := km.encryptors[km.currentVer]
	if !ok {
		return "", ErrKeyNotLoaded
	}
	return enc.Encrypt(plaintext)
}

// Decrypt opens ciphertext with whichever key version sealed it.
func (km *KeyManager) Decrypt(ciphertext string) (string, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	version := ParseVersion(ciphertext)
	if version == 0 {
		return "", ErrInvalidCiphertext
	}
	enc, ok := km.encryptors[version]
	if !ok {
		return "", fmt.Errorf("crypto: key version %d not available", version)
	}
	return enc.Decrypt(ciphertext)
}

// ReEncrypt reseals a ciphertext with the newest key. Used when rotating.
func (km *KeyManager) ReEncrypt(ciphertext string) (string, error) {
	plaintext, err := km.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return km.Encrypt(plaintext)
}

// CurrentVersion returns the version new ciphertexts are written with.
func (km *KeyManager) CurrentVersion() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return km.currentVer
}

// GenerateKey returns a fresh random base64-encoded AES-256 key.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("crypto: generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
