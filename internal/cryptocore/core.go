package cryptocore

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"io"
	"sync"
)

var (
	randMu        sync.RWMutex
	randomnessSrc io.Reader = randReader{}
)

// randReader wraps crypto/rand.Reader but keeps the type unexported so tests can
// substitute deterministic sources.
type randReader struct{}

func (randReader) Read(p []byte) (int, error) {
	return rand.Read(p)
}

// UseDeterministicRandom swaps the randomness source for deterministic testing
// and returns a restore function that must be called when the test completes.
func UseDeterministicRandom(r io.Reader) func() {
	randMu.Lock()
	prev := randomnessSrc
	randomnessSrc = r
	randMu.Unlock()
	return func() {
		randMu.Lock()
		randomnessSrc = prev
		randMu.Unlock()
	}
}

func readRandom(b []byte) error {
	randMu.RLock()
	src := randomnessSrc
	randMu.RUnlock()
	_, err := io.ReadFull(src, b)
	return err
}

// KeyPair is the text form of a P-256 key pair. PublicKey is the base64 raw
// point and PrivateKey is a JWK document; the private half never leaves the
// keyring of the party that generated it.
type KeyPair struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

const maxScalarAttempts = 64

// GenerateKeyPair creates a fresh P-256 key pair suitable for ECDH.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := generatePrivateKey()
	if err != nil {
		return KeyPair{}, err
	}
	jwk, err := marshalPrivateJWK(priv)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		PublicKey:  EncodeBytes(priv.PublicKey().Bytes()),
		PrivateKey: jwk,
	}, nil
}

// generatePrivateKey rejection-samples a scalar in [1, n) so the result is
// uniform over the group order.
func generatePrivateKey() (*ecdh.PrivateKey, error) {
	scalar := make([]byte, p256ScalarSize)
	for range maxScalarAttempts {
		if err := readRandom(scalar); err != nil {
			return nil, err
		}
		priv, err := ecdh.P256().NewPrivateKey(scalar)
		if err == nil {
			return priv, nil
		}
	}
	return nil, errors.New("cryptocore: randomness source produced no valid scalar")
}

var _ io.Reader = randReader{}
