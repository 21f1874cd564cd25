package model

import "errors"

var (
	ErrNotFound        = errors.New("document not found")
	ErrAlreadyExists   = errors.New("document already exists")
	ErrDuplicateName   = errors.New("document with this name already exists")
	ErrInvalidDocument = errors.New("invalid document")
	ErrClosed          = errors.New("store is closed")
)
