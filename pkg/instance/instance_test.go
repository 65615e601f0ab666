package instance

import "testing"

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("PACKTRACK_INSTANCE_ID", "desk-7")
	if got := GetID(); got != "desk-7" {
		t.Fatalf("expected desk-7, got %q", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("PACKTRACK_INSTANCE_ID", "")
	if got := GetID(); got == "" {
		t.Fatal("expected a non-empty fallback id")
	}
}
