package cryptocore

import "errors"

var (
	ErrKeyFormat  = errors.New("cryptocore: malformed key material")
	ErrDecode     = errors.New("cryptocore: malformed encoded text")
	ErrDecryption = errors.New("cryptocore: message authentication failed")
)
