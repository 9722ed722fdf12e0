package cryptocore

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const hkdfInfo = "e2e-store"

// hkdfSalt is all zeros; browsers holding existing keys derive with the same salt.
var hkdfSalt [32]byte

// SymmetricKey is an AES-256 key derived from an ECDH shared secret.
type SymmetricKey [32]byte

// DeriveSymmetricKey computes ECDH(localPrivateKey, remotePublicKey) and
// stretches it through HKDF-SHA-256. The result is the same whichever party
// performs the derivation.
func DeriveSymmetricKey(localPrivateKey, remotePublicKey string) (SymmetricKey, error) {
	priv, err := parsePrivateKey(localPrivateKey)
	if err != nil {
		return SymmetricKey{}, err
	}
	pub, err := parsePublicKey(remotePublicKey)
	if err != nil {
		return SymmetricKey{}, err
	}
	shared, err := priv.ECDH(pub)
	if err != nil {
		return SymmetricKey{}, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	var key SymmetricKey
	r := hkdf.New(sha256.New, shared, hkdfSalt[:], []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return SymmetricKey{}, err
	}
	return key, nil
}
