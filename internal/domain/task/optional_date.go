package task

import (
	"encoding/json"
	"time"
)

// OptionalDate is a dueDate in a partial update. Present distinguishes an
// absent key from an explicit null; a null or empty value clears the date.
type OptionalDate struct {
	Present bool
	Value   *time.Time
}

func (o *OptionalDate) UnmarshalJSON(b []byte) error {
	o.Present = true

	if string(b) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	if s == "" {
		o.Value = nil
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}

	o.Value = &t
	return nil
}

func (o OptionalDate) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Value == nil {
		return []byte("null"), nil
	}

	return json.Marshal(o.Value)
}
