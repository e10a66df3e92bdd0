// Package enrichment talks to the text-generation service that decorates
// matches with conversation starters and compatibility reports, and can
// invent sample profiles. Every call is best-effort: callers must treat any
// error as "unavailable" and fall back to the deterministic local content in
// fallback.go.
package enrichment

import (
	"context"
	"errors"

	"github.com/illegalcall/match-master/internal/models"
)

// ErrUnavailable wraps any generation failure. It never reaches an API
// caller; the orchestrator absorbs it into the fallback path.
var ErrUnavailable = errors.New("enrichment unavailable")

// Generator is the strict boundary to the text-generation service. A method
// either returns a structurally valid result or an error; no partial parsing
// leaks past this interface.
type Generator interface {
	// ConversationStarters returns 1-5 opener strings for a fresh match.
	ConversationStarters(ctx context.Context, a, b *models.Profile) ([]string, error)

	// CompatibilityReport returns non-empty prose explaining the match.
	CompatibilityReport(ctx context.Context, a, b *models.Profile, score float64, reasons []string) (string, error)

	// SampleProfiles invents count realistic profile payloads.
	SampleProfiles(ctx context.Context, count int) ([]models.NewProfileRequest, error)
}
