package tag

import "errors"

var (
	ErrNotFound     = errors.New("tag not found")
	ErrAlreadyExist = errors.New("tag already exists")
	ErrInvalidName  = errors.New("invalid tag name")
)
