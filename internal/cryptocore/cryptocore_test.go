package cryptocore

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func deterministicReader(size int) *bytes.Reader {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return bytes.NewReader(buf)
}

func mustKeyPair(t *testing.T) KeyPair {
	t.Helper()
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	return kp
}

func TestAgreementSymmetry(t *testing.T) {
	for i := 0; i < 32; i++ {
		a := mustKeyPair(t)
		b := mustKeyPair(t)

		ab, err := DeriveSymmetricKey(a.PrivateKey, b.PublicKey)
		require.NoError(t, err)
		ba, err := DeriveSymmetricKey(b.PrivateKey, a.PublicKey)
		require.NoError(t, err)
		require.Equal(t, ab, ba)

		c := mustKeyPair(t)
		ac, err := DeriveSymmetricKey(a.PrivateKey, c.PublicKey)
		require.NoError(t, err)
		require.NotEqual(t, ab, ac)
	}
}

func TestRoundTrip(t *testing.T) {
	a := mustKeyPair(t)
	b := mustKeyPair(t)
	key, err := DeriveSymmetricKey(a.PrivateKey, b.PublicKey)
	require.NoError(t, err)

	for _, p := range []string{
		"",
		"hello",
		`{"address":"1 Main St","notes":"ring twice"}`,
		"мир 世界 🚚",
		strings.Repeat("x", 64*1024),
	} {
		env, err := Encrypt(p, key)
		require.NoError(t, err)
		got, err := Decrypt(env, key)
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	a, b, c := mustKeyPair(t), mustKeyPair(t), mustKeyPair(t)
	key, err := DeriveSymmetricKey(a.PrivateKey, b.PublicKey)
	require.NoError(t, err)
	other, err := DeriveSymmetricKey(a.PrivateKey, c.PublicKey)
	require.NoError(t, err)

	env, err := Encrypt("secret", key)
	require.NoError(t, err)
	_, err = Decrypt(env, other)
	require.ErrorIs(t, err, ErrDecryption)
	require.NotErrorIs(t, err, ErrDecode)
}

func TestTamperDetection(t *testing.T) {
	a, b := mustKeyPair(t), mustKeyPair(t)
	key, err := DeriveSymmetricKey(a.PrivateKey, b.PublicKey)
	require.NoError(t, err)

	text, err := Encrypt("ship to 221B Baker Street", key)
	require.NoError(t, err)
	env, err := ParseEnvelope(text)
	require.NoError(t, err)

	flip := func(buf []byte, bit int) []byte {
		out := append([]byte(nil), buf...)
		out[bit/8] ^= 1 << (bit % 8)
		return out
	}

	for bit := 0; bit < len(env.Nonce)*8; bit++ {
		tampered := Envelope{Nonce: flip(env.Nonce, bit), Ciphertext: env.Ciphertext}
		_, err := Decrypt(tampered.String(), key)
		require.ErrorIs(t, err, ErrDecryption, "nonce bit %d", bit)
	}
	for bit := 0; bit < len(env.Ciphertext)*8; bit++ {
		tampered := Envelope{Nonce: env.Nonce, Ciphertext: flip(env.Ciphertext, bit)}
		_, err := Decrypt(tampered.String(), key)
		require.ErrorIs(t, err, ErrDecryption, "ciphertext bit %d", bit)
	}

	truncated := Envelope{Nonce: env.Nonce[:NonceSize-1], Ciphertext: env.Ciphertext}
	_, err = Decrypt(truncated.String(), key)
	require.ErrorIs(t, err, ErrDecryption)
}

func TestNonceUniqueness(t *testing.T) {
	a, b := mustKeyPair(t), mustKeyPair(t)
	key, err := DeriveSymmetricKey(a.PrivateKey, b.PublicKey)
	require.NoError(t, err)

	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		text, err := Encrypt("same plaintext", key)
		require.NoError(t, err)
		env, err := ParseEnvelope(text)
		require.NoError(t, err)
		require.Len(t, env.Nonce, NonceSize)
		seen[string(env.Nonce)] = struct{}{}
	}
	require.Len(t, seen, n)
}

func TestCodecRoundTrip(t *testing.T) {
	for i := 0; i < 1000; i++ {
		buf := make([]byte, i%257)
		_, err := rand.Read(buf)
		require.NoError(t, err)
		got, err := DecodeBytes(EncodeBytes(buf))
		require.NoError(t, err)
		require.True(t, bytes.Equal(buf, got), "length %d", len(buf))
	}

	_, err := DecodeBytes("not*base64")
	require.ErrorIs(t, err, ErrDecode)
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	var key SymmetricKey
	for _, text := range []string{
		"",
		"%%%",
		EncodeBytes([]byte("not json")),
		EncodeBytes([]byte(`{}`)),
		EncodeBytes([]byte(`{"iv":"***","ct":"AAAA"}`)),
		EncodeBytes([]byte(`["iv","ct"]`)),
	} {
		_, err := Decrypt(text, key)
		require.ErrorIs(t, err, ErrDecryption, "input %q", text)
		require.ErrorIs(t, err, ErrDecode, "input %q", text)
	}
}

func TestMalformedKeys(t *testing.T) {
	good := mustKeyPair(t)
	other := mustKeyPair(t)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(good.PrivateKey), &doc))
	doc["x"] = encodeJWKField(bytes.Repeat([]byte{1}, 32))
	mismatched, err := json.Marshal(doc)
	require.NoError(t, err)

	offCurve := append([]byte{0x04}, bytes.Repeat([]byte{0x01}, 64)...)

	cases := []struct {
		name string
		priv string
		pub  string
	}{
		{"private not json", "garbage", other.PublicKey},
		{"private wrong curve", `{"kty":"EC","crv":"P-384","d":"AA"}`, other.PublicKey},
		{"private zero scalar", `{"kty":"EC","crv":"P-256","d":"` + encodeJWKField(make([]byte, 32)) + `"}`, other.PublicKey},
		{"private coordinates mismatch", string(mismatched), other.PublicKey},
		{"public not base64", good.PrivateKey, "***"},
		{"public wrong length", good.PrivateKey, EncodeBytes([]byte{0x04, 1, 2, 3})},
		{"public off curve", good.PrivateKey, EncodeBytes(offCurve)},
		{"public empty", good.PrivateKey, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DeriveSymmetricKey(tc.priv, tc.pub)
			require.ErrorIs(t, err, ErrKeyFormat)
		})
	}
}

func TestPublicKeyOf(t *testing.T) {
	kp := mustKeyPair(t)
	pub, err := PublicKeyOf(kp.PrivateKey)
	require.NoError(t, err)
	require.Equal(t, kp.PublicKey, pub)
	require.NoError(t, ValidatePublicKey(pub))

	_, err = PublicKeyOf("{}")
	require.ErrorIs(t, err, ErrKeyFormat)
}

func TestDeterministicKeyPair(t *testing.T) {
	restore := UseDeterministicRandom(deterministicReader(64))
	first, err := GenerateKeyPair()
	restore()
	require.NoError(t, err)

	restore = UseDeterministicRandom(deterministicReader(64))
	second, err := GenerateKeyPair()
	restore()
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.True(t, strings.HasPrefix(first.PrivateKey, `{"crv":"P-256","d":"`))
	require.Contains(t, first.PrivateKey, `"key_ops":["deriveKey","deriveBits"],"kty":"EC"`)

	raw, err := DecodeBytes(first.PublicKey)
	require.NoError(t, err)
	require.Len(t, raw, p256PointSize)
	require.Equal(t, byte(0x04), raw[0])
}

func TestShortJWKScalarIsPadded(t *testing.T) {
	restore := UseDeterministicRandom(bytes.NewReader(append(make([]byte, 31), 7)))
	kp, err := GenerateKeyPair()
	restore()
	require.NoError(t, err)

	var doc privateJWK
	require.NoError(t, json.Unmarshal([]byte(kp.PrivateKey), &doc))
	d, err := decodeJWKField(doc.D)
	require.NoError(t, err)
	doc.D = encodeJWKField(bytes.TrimLeft(d, "\x00"))
	trimmed, err := json.Marshal(doc)
	require.NoError(t, err)

	pub, err := PublicKeyOf(string(trimmed))
	require.NoError(t, err)
	require.Equal(t, kp.PublicKey, pub)
}
