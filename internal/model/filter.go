package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

var fieldRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate проверяет имена полей фильтра
func (f Filter) Validate() error {
	for k := range f.Where {
		if !fieldRe.MatchString(k) {
			return fmt.Errorf("%w: bad field %q", ErrInvalidDocument, k)
		}
	}
	for k := range f.Contains {
		if !fieldRe.MatchString(k) {
			return fmt.Errorf("%w: bad field %q", ErrInvalidDocument, k)
		}
	}
	return nil
}

// Match проверяет документ на соответствие фильтру без учета Limit
func (f Filter) Match(doc Document) bool {
	if doc.Deleted && !f.IncludeDeleted {
		return false
	}
	if len(f.Where) == 0 && len(f.Contains) == 0 {
		return true
	}

	var payload map[string]any
	if err := json.Unmarshal(doc.Data, &payload); err != nil {
		return false
	}

	for k, want := range f.Where {
		got, ok := payload[k]
		if !ok || !sameValue(got, want) {
			return false
		}
	}

	for k, want := range f.Contains {
		list, ok := payload[k].([]any)
		if !ok {
			return false
		}
		found := false
		for _, v := range list {
			if s, ok := v.(string); ok && s == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sameValue сравнивает значение из JSON с произвольным значением фильтра
func sameValue(got, want any) bool {
	raw, err := json.Marshal(want)
	if err != nil {
		return false
	}
	var norm any
	if err := json.Unmarshal(raw, &norm); err != nil {
		return false
	}
	a, _ := json.Marshal(got)
	b, _ := json.Marshal(norm)
	return string(a) == string(b)
}

// MergeData применяет delta к полезной нагрузке: ключ со значением nil удаляется
func MergeData(data json.RawMessage, delta map[string]any) (json.RawMessage, error) {
	payload := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	for k, v := range delta {
		if v == nil {
			delete(payload, k)
			continue
		}
		payload[k] = v
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

// NormalizeData проверяет, что полезная нагрузка является JSON-объектом
func NormalizeData(data json.RawMessage) (json.RawMessage, error) {
	if len(data) == 0 {
		return json.RawMessage("{}"), nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: data must be a JSON object", ErrInvalidDocument)
	}
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

// NextUpdatedAt возвращает метку времени локальной записи: строго больше предыдущей
func NextUpdatedAt(now, prev time.Time) time.Time {
	now = Truncate(now)
	if prev.IsZero() {
		return now
	}
	prev = Truncate(prev)
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}
