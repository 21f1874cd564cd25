package notification

import "errors"

var (
	ErrNotFound        = errors.New("notification not found")
	ErrAlreadyExist    = errors.New("notification already exists")
	ErrUnknownFact     = errors.New("fact does not exist")
	ErrUnknownSchedule = errors.New("schedule does not exist")
)
