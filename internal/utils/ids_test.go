package utils_test

import (
	"testing"

	"github.com/geocoder89/taskmaster/internal/utils"
	"github.com/google/uuid"
)

func TestIsUUID(t *testing.T) {
	if !utils.IsUUID(uuid.NewString()) {
		t.Fatal("valid uuid rejected")
	}

	for _, bad := range []string{"", "123", "not-a-uuid", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"} {
		if utils.IsUUID(bad) {
			t.Fatalf("accepted %q as a uuid", bad)
		}
	}
}

func TestParsePositiveInt(t *testing.T) {
	tests := []struct {
		raw      string
		fallback int
		want     int
	}{
		{"3", 10, 3},
		{"", 10, 10},
		{"0", 10, 10},
		{"-5", 1, 1},
		{"abc", 1, 1},
		{"2.5", 1, 1},
	}

	for _, tt := range tests {
		if got := utils.ParsePositiveInt(tt.raw, tt.fallback); got != tt.want {
			t.Errorf("ParsePositiveInt(%q, %d) = %d, want %d", tt.raw, tt.fallback, got, tt.want)
		}
	}
}
