package services

import (
	"errors"
	"testing"

	"storyforge/internal/project"
)

func TestWrapTagsMarkerAndCause(t *testing.T) {
	inner := errors.New("connection refused")
	err := Wrap(ErrExternalTool, "wanx", "submit", "status 502", inner)
	if !errors.Is(err, ErrExternalTool) {
		t.Fatalf("marker lost: %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestWrapNilMarkerDefaults(t *testing.T) {
	if err := Wrap(nil, "generation", "generate", "", nil); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected default marker, got %v", err)
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		want     project.Status
		terminal bool
	}{
		{"generic", errors.New("provider down"), project.StatusFailed, true},
		{"external tool", Wrap(ErrExternalTool, "wanx", "submit", "", nil), project.StatusFailed, true},
		{"timeout", Wrap(ErrTimeout, "videotask", "poll", "", nil), project.StatusFailed, true},
		{"validation", Wrap(ErrValidation, "generation", "prepare", "", nil), "", false},
		{"precondition", Wrap(ErrPrecondition, "generation", "resolve reference", "", nil), "", false},
		{"configuration", Wrap(ErrConfiguration, "wanx", "request", "", nil), "", false},
		{"not found", Wrap(ErrNotFound, "api", "get project", "", nil), "", false},
	}
	for _, tc := range cases {
		got, terminal := FailureStatus(tc.err)
		if got != tc.want || terminal != tc.terminal {
			t.Errorf("%s: FailureStatus = (%q, %v), want (%q, %v)",
				tc.name, got, terminal, tc.want, tc.terminal)
		}
	}
}
