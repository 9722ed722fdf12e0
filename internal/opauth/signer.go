// Package opauth issues and checks the bearer tokens that gate operator-only
// writes, such as replacing the published operator key.
package opauth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultIssuer = "e2ectl"
	RoleClaim     = "role"
	OperatorRole  = "operator"
)

var ErrKeySize = errors.New("opauth: invalid ed25519 key size")

// Signer holds an Ed25519 keypair for issuing operator tokens.
type Signer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	KeyID   string
	Issuer  string
}

// GenerateKey returns a fresh keypair as base64 text, private half first.
func GenerateKey() (string, string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(priv), base64.StdEncoding.EncodeToString(pub), nil
}

// NewFromBase64 creates a signer from base64-encoded ed25519 private key bytes.
func NewFromBase64(privB64, kid, iss string) (*Signer, error) {
	raw, err := base64.StdEncoding.DecodeString(privB64)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, ErrKeySize
	}
	priv := ed25519.PrivateKey(raw)
	if iss == "" {
		iss = DefaultIssuer
	}
	return &Signer{private: priv, public: priv.Public().(ed25519.PublicKey), KeyID: kid, Issuer: iss}, nil
}

// PublicKeyBase64 is the value the server expects in
// OPERATOR_TOKEN_PUBLIC_KEY.
func (s *Signer) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(s.public)
}

// Sign issues an operator token for subject sub.
func (s *Signer) Sign(sub string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     s.Issuer,
		"sub":     sub,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
		RoleClaim: OperatorRole,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	if s.KeyID != "" {
		t.Header["kid"] = s.KeyID
	}
	return t.SignedString(s.private)
}
