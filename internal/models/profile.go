package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MinLevel = 1
	MaxLevel = 10
)

// Profile represents a professional looking for connections
type Profile struct {
	ID               string    `json:"profile_id" db:"profile_id"`
	Name             string    `json:"name" db:"name"`
	Age              int       `json:"age" db:"age"`
	JobTitle         string    `json:"job_title" db:"job_title"`
	Industry         string    `json:"industry" db:"industry"`
	Schedule         string    `json:"schedule" db:"schedule"`
	AmbitionLevel    int       `json:"ambition_level" db:"ambition_level"`
	StressLevel      int       `json:"stress_level" db:"stress_level"`
	WorkLifePriority string    `json:"work_life_priority" db:"work_life_priority"`
	Skills           []string  `json:"skills"`
	Goals            []string  `json:"goals"`
	Bio              string    `json:"bio" db:"bio"`
	LookingFor       string    `json:"looking_for" db:"looking_for"`
	Likes            []string  `json:"likes"`
	Passes           []string  `json:"passes"`
	Matches          []string  `json:"matches"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// NewProfile builds a validated profile from a create request. Ambition and
// stress levels are clamped into [1,10]; missing required attributes are
// rejected before anything is persisted.
func NewProfile(req NewProfileRequest) (*Profile, error) {
	if req.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "name is required"}
	}
	if req.Age <= 0 {
		return nil, &ValidationError{Field: "age", Reason: "age must be positive"}
	}
	if req.JobTitle == "" {
		return nil, &ValidationError{Field: "job_title", Reason: "job title is required"}
	}
	if req.Industry == "" {
		return nil, &ValidationError{Field: "industry", Reason: "industry is required"}
	}
	if req.WorkLifePriority == "" {
		return nil, &ValidationError{Field: "work_life_priority", Reason: "work-life priority is required"}
	}

	return &Profile{
		ID:               uuid.NewString(),
		Name:             req.Name,
		Age:              req.Age,
		JobTitle:         req.JobTitle,
		Industry:         req.Industry,
		Schedule:         req.Schedule,
		AmbitionLevel:    clampLevel(req.AmbitionLevel),
		StressLevel:      clampLevel(req.StressLevel),
		WorkLifePriority: req.WorkLifePriority,
		Skills:           copyStrings(req.Skills),
		Goals:            copyStrings(req.Goals),
		Bio:              req.Bio,
		LookingFor:       req.LookingFor,
		Likes:            []string{},
		Passes:           []string{},
		Matches:          []string{},
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// AddLike records a like for the target id. Insertion is idempotent: liking
// the same profile twice leaves a single entry. Returns true if the set changed.
func (p *Profile) AddLike(id string) bool {
	return appendUnique(&p.Likes, id)
}

// AddPass records a pass for the target id, idempotently. A pass never
// removes a previously recorded like; both may coexist.
func (p *Profile) AddPass(id string) bool {
	return appendUnique(&p.Passes, id)
}

// AddMatch appends a match id to the profile's matches set, idempotently.
func (p *Profile) AddMatch(id string) bool {
	return appendUnique(&p.Matches, id)
}

// HasLiked reports whether this profile has liked the given profile id.
func (p *Profile) HasLiked(id string) bool {
	return contains(p.Likes, id)
}

// HasPassed reports whether this profile has passed on the given profile id.
func (p *Profile) HasPassed(id string) bool {
	return contains(p.Passes, id)
}

// ValidationError rejects a request before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func clampLevel(v int) int {
	if v < MinLevel {
		return MinLevel
	}
	if v > MaxLevel {
		return MaxLevel
	}
	return v
}

func appendUnique(set *[]string, id string) bool {
	if contains(*set, id) {
		return false
	}
	*set = append(*set, id)
	return true
}

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
