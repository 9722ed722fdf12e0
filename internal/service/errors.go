package service

import (
	"errors"

	"e2estore/internal/domain"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = domain.ErrNotFound
)
