package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
)

// KeyPair holds an Ed25519 signing key and its derived public half.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateKeyPair creates a fresh ephemeral Ed25519 key pair. Tokens signed
// with it stop verifying after a restart, which is acceptable for dev and
// test; production should load a persisted seed.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("jwtx: generate key: %w", err)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// LoadKeyPairFromSeedFile reads a base64url-encoded 32-byte Ed25519 seed from
// path and derives the key pair from it.
func LoadKeyPairFromSeedFile(path string) (KeyPair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeyPair{}, fmt.Errorf("jwtx: read seed file: %w", err)
	}

	seed, err := base64.RawURLEncoding.DecodeString(string(trimNewline(raw)))
	if err != nil {
		return KeyPair{}, fmt.Errorf("jwtx: decode seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, fmt.Errorf("jwtx: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
