package providers

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/nacl/secretbox"
)

// SecretboxCrypto is the default Crypto Provider. Symmetric encryption uses
// nacl/secretbox with a key derived from the engine's configured secret.
type SecretboxCrypto struct {
	key [32]byte
}

// NewSecretboxCrypto derives the encryption key from secret.
func NewSecretboxCrypto(secret string) *SecretboxCrypto {
	return &SecretboxCrypto{key: sha256.Sum256([]byte(secret))}
}

// Encrypt implements registry.CryptoProvider. The only supported algorithm
// is "secretbox" (also the default for an empty string).
func (c *SecretboxCrypto) Encrypt(plain, algorithm string) (string, error) {
	if algorithm != "" && algorithm != "secretbox" {
		return "", fmt.Errorf("unsupported encryption algorithm %q", algorithm)
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *SecretboxCrypto) Decrypt(cipher, algorithm string) (string, error) {
	if algorithm != "" && algorithm != "secretbox" {
		return "", fmt.Errorf("unsupported encryption algorithm %q", algorithm)
	}
	raw, err := base64.StdEncoding.DecodeString(cipher)
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("malformed ciphertext: too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("decryption failed")
	}
	return string(plain), nil
}

// Hash implements registry.CryptoProvider.
func (c *SecretboxCrypto) Hash(algorithm, value string) (string, error) {
	switch algorithm {
	case "md5":
		sum := md5.Sum([]byte(value))
		return hex.EncodeToString(sum[:]), nil
	case "sha1":
		sum := sha1.Sum([]byte(value))
		return hex.EncodeToString(sum[:]), nil
	case "sha256", "":
		sum := sha256.Sum256([]byte(value))
		return hex.EncodeToString(sum[:]), nil
	case "sha512":
		sum := sha512.Sum512([]byte(value))
		return hex.EncodeToString(sum[:]), nil
	case "bcrypt":
		out, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	return "", fmt.Errorf("unsupported hash algorithm %q", algorithm)
}
