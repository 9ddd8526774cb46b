package services

import (
	"errors"
	"fmt"
	"strings"

	"storyforge/internal/project"
)

var (
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
	ErrPrecondition     = errors.New("precondition failed")
	ErrGenerationFailed = errors.New("generation failed")
	ErrTimeout          = errors.New("timeout")
	ErrStorage          = errors.New("storage error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrGenerationFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps an error raised during generation to the entity status
// that should be persisted afterwards. Precondition and validation failures
// happen before any work starts, so the entity keeps its previous status.
func FailureStatus(err error) (project.Status, bool) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrPrecondition),
		errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return "", false
	default:
		return project.StatusFailed, true
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
