package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/illegalcall/match-master/internal/models"
)

// Factor weights. The denominator is always the sum of every maximum, so the
// final score normalizes to 0-100 regardless of which factors trigger.
const (
	workLifeWeight  = 25.0
	ambitionWeight  = 20.0
	industryWeight  = 15.0
	scheduleWeight  = 15.0
	skillsWeight    = 15.0
	goalsWeight     = 10.0
	maxScore        = workLifeWeight + ambitionWeight + industryWeight + scheduleWeight + skillsWeight + goalsWeight
	ambitionPenalty = 5.0

	skillPoints = 3.0
	goalPoints  = 2.0
)

// Match type labels, chosen by a fixed priority cascade.
const (
	TypeWorkLifeBalance = "Work-Life Balance Match"
	TypeAmbition        = "Ambition Match"
	TypeIndustry        = "Industry Match"
	TypeSkills          = "Skills Match"
	TypeGoals           = "Goals Match"
	TypeSchedule        = "Schedule Match"
	TypeGeneral         = "General Match"
)

// Result holds the computed compatibility data for a pair of profiles.
type Result struct {
	Score     float64
	Reasons   []string
	MatchType string
}

// Candidate pairs a profile with its compatibility against the seeker.
type Candidate struct {
	Profile *models.Profile
	Result
}

// Score computes the compatibility between two profiles. It is symmetric:
// score, reasons and match type are identical regardless of argument order.
func Score(a, b *models.Profile) Result {
	var score float64
	reasons := []string{}

	if a.WorkLifePriority == b.WorkLifePriority {
		score += workLifeWeight
		reasons = append(reasons, fmt.Sprintf("Both prioritize %s work-life balance", a.WorkLifePriority))
	}

	ambitionDiff := math.Abs(float64(a.AmbitionLevel - b.AmbitionLevel))
	ambitionScore := math.Max(0, ambitionWeight-ambitionDiff*ambitionPenalty)
	score += ambitionScore
	if ambitionScore > 15 {
		reasons = append(reasons, "Similar ambition levels")
	}

	if a.Industry == b.Industry {
		score += industryWeight
		reasons = append(reasons, fmt.Sprintf("Same industry: %s", a.Industry))
	}

	if a.Schedule == b.Schedule {
		score += scheduleWeight
		reasons = append(reasons, fmt.Sprintf("Compatible schedules: %s", a.Schedule))
	}

	commonSkills := intersect(a.Skills, b.Skills)
	if len(commonSkills) > 0 {
		score += math.Min(skillsWeight, float64(len(commonSkills))*skillPoints)
		reasons = append(reasons, fmt.Sprintf("Shared skills: %s", strings.Join(top(commonSkills, 3), ", ")))
	}

	commonGoals := intersect(a.Goals, b.Goals)
	if len(commonGoals) > 0 {
		score += math.Min(goalsWeight, float64(len(commonGoals))*goalPoints)
		reasons = append(reasons, fmt.Sprintf("Shared goals: %s", strings.Join(top(commonGoals, 2), ", ")))
	}

	normalized := math.Round(score/maxScore*100*10) / 10

	return Result{
		Score:     normalized,
		Reasons:   reasons,
		MatchType: matchType(a, b, commonSkills, commonGoals),
	}
}

// matchType picks the primary match label. The cascade order is fixed and
// intentionally does not mirror the scoring weights (ambition is checked
// before industry); callers depend on this exact order.
func matchType(a, b *models.Profile, commonSkills, commonGoals []string) string {
	switch {
	case a.WorkLifePriority == b.WorkLifePriority:
		return TypeWorkLifeBalance
	case abs(a.AmbitionLevel-b.AmbitionLevel) <= 1:
		return TypeAmbition
	case a.Industry == b.Industry:
		return TypeIndustry
	case len(commonSkills) > 0:
		return TypeSkills
	case len(commonGoals) > 0:
		return TypeGoals
	case a.Schedule == b.Schedule:
		return TypeSchedule
	default:
		return TypeGeneral
	}
}

// FindMatches ranks all candidate profiles against the seeker, skipping the
// seeker itself and any profile it has already passed on. Results are sorted
// by score descending and cut to maxResults. This is a full scan: O(n) in the
// number of profiles.
func FindMatches(profile *models.Profile, all []*models.Profile, maxResults int) []Candidate {
	candidates := make([]Candidate, 0, len(all))

	for _, other := range all {
		if other.ID == profile.ID {
			continue
		}
		if profile.HasPassed(other.ID) {
			continue
		}
		candidates = append(candidates, Candidate{Profile: other, Result: Score(profile, other)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if maxResults > 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	return candidates
}

// intersect returns the sorted set intersection of two tag lists. Sorting
// keeps the result independent of argument order, which keeps reason strings
// symmetric.
func intersect(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	var common []string
	added := make(map[string]struct{})
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			continue
		}
		if _, dup := added[v]; dup {
			continue
		}
		added[v] = struct{}{}
		common = append(common, v)
	}
	sort.Strings(common)
	return common
}

func top(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
