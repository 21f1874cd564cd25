package fact

import "errors"

var (
	ErrNotFound        = errors.New("fact not found")
	ErrAlreadyExist    = errors.New("fact already exists")
	ErrInvalidInput    = errors.New("invalid fact")
	ErrUnknownTag      = errors.New("tag does not exist")
	ErrUnknownSchedule = errors.New("schedule does not exist")
)
