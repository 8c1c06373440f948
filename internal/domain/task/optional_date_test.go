package task_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/geocoder89/taskmaster/internal/domain/task"
)

func TestOptionalDateUnmarshal(t *testing.T) {
	type payload struct {
		DueDate task.OptionalDate `json:"dueDate"`
	}

	t.Run("absent", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{}`), &p); err != nil {
			t.Fatal(err)
		}
		if p.DueDate.Present {
			t.Fatal("absent key marked present")
		}
	})

	t.Run("null_clears", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{"dueDate":null}`), &p); err != nil {
			t.Fatal(err)
		}
		if !p.DueDate.Present || p.DueDate.Value != nil {
			t.Fatalf("got %+v, want present nil", p.DueDate)
		}
	})

	t.Run("empty_string_clears", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{"dueDate":""}`), &p); err != nil {
			t.Fatal(err)
		}
		if !p.DueDate.Present || p.DueDate.Value != nil {
			t.Fatalf("got %+v, want present nil", p.DueDate)
		}
	})

	t.Run("valid_date", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{"dueDate":"2026-09-30T12:00:00Z"}`), &p); err != nil {
			t.Fatal(err)
		}
		want := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
		if p.DueDate.Value == nil || !p.DueDate.Value.Equal(want) {
			t.Fatalf("got %+v, want %v", p.DueDate, want)
		}
	})

	t.Run("invalid_date_errors", func(t *testing.T) {
		var p payload
		if err := json.Unmarshal([]byte(`{"dueDate":"next week"}`), &p); err == nil {
			t.Fatal("expected an error for a non-date value")
		}
	})
}

func TestIsValidStatus(t *testing.T) {
	for _, valid := range []string{task.StatusPending, task.StatusInProgress, task.StatusCompleted} {
		if !task.IsValidStatus(valid) {
			t.Fatalf("%q rejected", valid)
		}
	}

	for _, invalid := range []string{"", "done", "PENDING", "in_progress"} {
		if task.IsValidStatus(invalid) {
			t.Fatalf("%q accepted", invalid)
		}
	}
}
