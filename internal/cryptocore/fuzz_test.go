package cryptocore

import (
	"testing"
)

func FuzzDecrypt(f *testing.F) {
	f.Add("")
	f.Add(EncodeBytes([]byte(`{"iv":"AAAAAAAAAAAAAAAA","ct":"AAAAAAAAAAAAAAAAAAAAAA=="}`)))
	f.Add(EncodeBytes([]byte(`{"iv":"","ct":""}`)))
	f.Fuzz(func(t *testing.T, text string) {
		var key SymmetricKey
		if _, err := Decrypt(text, key); err == nil {
			t.Fatalf("decrypt of arbitrary input under zero key unexpectedly succeeded")
		}
	})
}

func FuzzParseKeys(f *testing.F) {
	f.Add("{}", "")
	f.Add(`{"kty":"EC","crv":"P-256","d":"AQ"}`, "BA==")
	f.Fuzz(func(t *testing.T, priv, pub string) {
		_, _ = DeriveSymmetricKey(priv, pub)
		_, _ = PublicKeyOf(priv)
	})
}
