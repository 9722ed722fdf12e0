package cryptocore

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"
)

// NonceSize is the AES-GCM nonce length carried in every envelope.
const NonceSize = 12

// Envelope is the decoded form of the wire envelope
// base64(json({"iv": base64(nonce), "ct": base64(ciphertext)})).
type Envelope struct {
	Nonce      []byte
	Ciphertext []byte
}

type envelopeWire struct {
	IV string `json:"iv"`
	CT string `json:"ct"`
}

// String renders the envelope in its wire text form.
func (e Envelope) String() string {
	inner, _ := json.Marshal(envelopeWire{
		IV: EncodeBytes(e.Nonce),
		CT: EncodeBytes(e.Ciphertext),
	})
	return EncodeBytes(inner)
}

// ParseEnvelope decodes wire text. Any structural problem fails with ErrDecode.
func ParseEnvelope(text string) (Envelope, error) {
	inner, err := DecodeBytes(text)
	if err != nil {
		return Envelope{}, err
	}
	var wire envelopeWire
	if err := json.Unmarshal(inner, &wire); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope is not a JSON document", ErrDecode)
	}
	if wire.IV == "" || wire.CT == "" {
		return Envelope{}, fmt.Errorf("%w: envelope missing iv or ct", ErrDecode)
	}
	nonce, err := DecodeBytes(wire.IV)
	if err != nil {
		return Envelope{}, err
	}
	ct, err := DecodeBytes(wire.CT)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Nonce: nonce, Ciphertext: ct}, nil
}

// Encrypt seals plaintext under key with a fresh random nonce and returns the
// wire envelope. Two calls with the same input never produce the same output.
func Encrypt(plaintext string, key SymmetricKey) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if err := readRandom(nonce); err != nil {
		return "", err
	}
	ct := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return Envelope{Nonce: nonce, Ciphertext: ct}.String(), nil
}

// Decrypt opens a wire envelope. Malformed text fails with both ErrDecryption
// and ErrDecode; a tag mismatch fails with ErrDecryption alone.
func Decrypt(envelope string, key SymmetricKey) (string, error) {
	env, err := ParseEnvelope(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}
	if len(env.Nonce) != NonceSize {
		return "", fmt.Errorf("%w: nonce must be %d bytes", ErrDecryption, NonceSize)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return "", ErrDecryption
	}
	return string(plaintext), nil
}

func newAEAD(key SymmetricKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
