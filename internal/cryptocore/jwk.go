package cryptocore

import (
	"bytes"
	"crypto/ecdh"
	"encoding/json"
	"fmt"
)

const (
	p256ScalarSize = 32
	p256PointSize  = 1 + 2*p256ScalarSize
)

// privateJWK mirrors the WebCrypto export of an ECDH P-256 private key. Field
// order is alphabetical so exported documents match browser output byte for
// byte.
type privateJWK struct {
	Crv    string   `json:"crv"`
	D      string   `json:"d"`
	Ext    bool     `json:"ext"`
	KeyOps []string `json:"key_ops"`
	Kty    string   `json:"kty"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
}

func marshalPrivateJWK(priv *ecdh.PrivateKey) (string, error) {
	point := priv.PublicKey().Bytes()
	doc := privateJWK{
		Crv:    "P-256",
		D:      encodeJWKField(priv.Bytes()),
		Ext:    true,
		KeyOps: []string{"deriveKey", "deriveBits"},
		Kty:    "EC",
		X:      encodeJWKField(point[1 : 1+p256ScalarSize]),
		Y:      encodeJWKField(point[1+p256ScalarSize:]),
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func parsePrivateKey(text string) (*ecdh.PrivateKey, error) {
	var doc privateJWK
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: private key is not a JWK document", ErrKeyFormat)
	}
	if doc.Kty != "EC" || doc.Crv != "P-256" {
		return nil, fmt.Errorf("%w: unsupported key type %q/%q", ErrKeyFormat, doc.Kty, doc.Crv)
	}
	d, err := decodeJWKField(doc.D)
	if err != nil || len(d) == 0 || len(d) > p256ScalarSize {
		return nil, fmt.Errorf("%w: invalid private scalar", ErrKeyFormat)
	}
	if len(d) < p256ScalarSize {
		d = append(make([]byte, p256ScalarSize-len(d)), d...)
	}
	priv, err := ecdh.P256().NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	if doc.X != "" || doc.Y != "" {
		x, errX := decodeJWKField(doc.X)
		y, errY := decodeJWKField(doc.Y)
		point := priv.PublicKey().Bytes()
		if errX != nil || errY != nil ||
			!bytes.Equal(x, point[1:1+p256ScalarSize]) ||
			!bytes.Equal(y, point[1+p256ScalarSize:]) {
			return nil, fmt.Errorf("%w: public coordinates do not match private scalar", ErrKeyFormat)
		}
	}
	return priv, nil
}

func parsePublicKey(text string) (*ecdh.PublicKey, error) {
	raw, err := DecodeBytes(text)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not base64", ErrKeyFormat)
	}
	if len(raw) != p256PointSize {
		return nil, fmt.Errorf("%w: public key must be a %d-byte uncompressed point", ErrKeyFormat, p256PointSize)
	}
	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	return pub, nil
}

// ValidatePublicKey reports whether text is a usable P-256 public key.
func ValidatePublicKey(text string) error {
	_, err := parsePublicKey(text)
	return err
}

// PublicKeyOf returns the public key text matching a JWK private key.
func PublicKeyOf(privateKey string) (string, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	return EncodeBytes(priv.PublicKey().Bytes()), nil
}
