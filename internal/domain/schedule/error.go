package schedule

import "errors"

var (
	ErrNotFound     = errors.New("schedule not found")
	ErrAlreadyExist = errors.New("schedule already exists")
	ErrInvalidInput = errors.New("invalid schedule")
)
