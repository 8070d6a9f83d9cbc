package instance

import "testing"

func TestGetIDPrefersOverride(t *testing.T) {
	t.Setenv(EnvInstanceID, "runner-7")
	if got := GetID(); got != "runner-7" {
		t.Fatalf("expected override, got %s", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(EnvInstanceID, "")
	if GetID() == "" {
		t.Fatal("expected a non-empty instance id")
	}
}
