package models

import (
	"time"

	"github.com/google/uuid"
)

// Match is the durable record of a mutual like between two profiles. The
// profile pair is unordered: profile1/profile2 positions carry no meaning.
// Score, reasons and match type are fixed at creation; the compatibility
// report and conversation starters are filled in later.
type Match struct {
	ID                   string    `json:"match_id" db:"match_id"`
	Profile1ID           string    `json:"profile1_id" db:"profile1_id"`
	Profile2ID           string    `json:"profile2_id" db:"profile2_id"`
	CompatibilityScore   float64   `json:"compatibility_score" db:"compatibility_score"`
	Reasons              []string  `json:"reasons"`
	MatchType            string    `json:"match_type" db:"match_type"`
	CompatibilityReport  string    `json:"compatibility_report,omitempty" db:"compatibility_report"`
	ConversationStarters []string  `json:"conversation_starters,omitempty"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// NewMatch creates a match record over the given pair with its computed
// compatibility data.
func NewMatch(profile1ID, profile2ID string, score float64, reasons []string, matchType string) *Match {
	return &Match{
		ID:                 uuid.NewString(),
		Profile1ID:         profile1ID,
		Profile2ID:         profile2ID,
		CompatibilityScore: score,
		Reasons:            copyStrings(reasons),
		MatchType:          matchType,
		CreatedAt:          time.Now().UTC(),
	}
}

// Involves reports whether the given profile participates in this match.
func (m *Match) Involves(profileID string) bool {
	return m.Profile1ID == profileID || m.Profile2ID == profileID
}

// OtherProfile returns the id of the other participant, or "" if the given
// profile is not part of this match.
func (m *Match) OtherProfile(profileID string) string {
	switch profileID {
	case m.Profile1ID:
		return m.Profile2ID
	case m.Profile2ID:
		return m.Profile1ID
	default:
		return ""
	}
}

// PairKey returns the canonical identifier for an unordered profile pair.
// Both orderings of the same two ids map to the same key.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "__" + b
}
