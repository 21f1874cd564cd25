package fact

import "time"

type CreateRequest struct {
	Name        string
	Description string
	Deadline    *time.Time
	Active      bool
	Tags        []string
}

// UpdateRequest частичное обновление: nil означает "не менять"
type UpdateRequest struct {
	Name          *string
	Description   *string
	Deadline      *time.Time
	ClearDeadline bool
	Active        *bool
}

type ListFilter struct {
	TagID      string
	ScheduleID string
	ActiveOnly bool
}
