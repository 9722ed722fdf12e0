package conversation

import "errors"

var (
	// ErrMissingKey means the sender lacks a private key or the recipient has
	// not published one. Nothing was stored.
	ErrMissingKey = errors.New("conversation: key unavailable")
	// ErrPersistence means the envelope store rejected the record. The
	// envelope is discarded; a retry encrypts again under a fresh nonce.
	ErrPersistence    = errors.New("conversation: record not persisted")
	ErrNotParticipant = errors.New("conversation: viewer is not a participant")
)
