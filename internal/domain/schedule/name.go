package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const DaysInWeek = 7

var timeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate проверяет параметры расписания для его типа
func (s Spec) Validate() error {
	switch s.Type {
	case TypeNotifyEvery:
		if s.Interval <= 0 {
			return fmt.Errorf("%w: missing interval for %s schedule", ErrInvalidInput, TypeNotifyEvery)
		}
	case TypeNotifyAt:
		if len(s.NotifyTimes) == 0 || len(s.DayOfWeek) == 0 {
			return fmt.Errorf("%w: missing dayOfWeek or notifyTimes for %s schedule", ErrInvalidInput, TypeNotifyAt)
		}
		if len(s.DayOfWeek) != DaysInWeek {
			return fmt.Errorf("%w: dayOfWeek must have %d items", ErrInvalidInput, DaysInWeek)
		}
		seen := make(map[string]struct{}, len(s.NotifyTimes))
		for _, t := range s.NotifyTimes {
			if !timeRe.MatchString(t) {
				return fmt.Errorf("%w: notify time %q is not HH:MM", ErrInvalidInput, t)
			}
			if _, dup := seen[t]; dup {
				return fmt.Errorf("%w: duplicate notify time %q", ErrInvalidInput, t)
			}
			seen[t] = struct{}{}
		}
	case "":
		return fmt.Errorf("%w: missing schedule type", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown schedule type %s", ErrInvalidInput, s.Type)
	}
	return nil
}

// GenerateName строит имя расписания, по которому проверяется уникальность
func (s Spec) GenerateName() (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	switch s.Type {
	case TypeNotifyEvery:
		return "repeat after " + minutesToString(s.Interval), nil
	default:
		days := make([]string, len(s.DayOfWeek))
		for i, d := range s.DayOfWeek {
			days[i] = strconv.FormatBool(d)
		}
		return strings.Join(s.NotifyTimes, ", ") + " at " + strings.Join(days, ", "), nil
	}
}

func minutesToString(m int) string {
	h, min := m/60, m%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d min", min)
	case min == 0:
		return fmt.Sprintf("%d h", h)
	}
	return fmt.Sprintf("%d h %d min", h, min)
}
