package cryptocore

import (
	"encoding/base64"
	"fmt"
)

// EncodeBytes renders binary key or ciphertext material as standard base64.
func EncodeBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeBytes reverses EncodeBytes. Invalid input fails with ErrDecode.
func DecodeBytes(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}

func encodeJWKField(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeJWKField(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
