package enrichment

import (
	"fmt"
	"strings"

	"github.com/illegalcall/match-master/internal/models"
)

// FallbackStarters builds deterministic conversation starters from the two
// profiles when the generation service is unavailable. Never empty.
func FallbackStarters(a, b *models.Profile) []string {
	skills := b.Skills
	if len(skills) > 2 {
		skills = skills[:2]
	}
	skillText := strings.Join(skills, ", ")
	if skillText == "" {
		skillText = b.Industry
	}

	return []string{
		fmt.Sprintf("Hi %s! I noticed we have similar interests in %s.", b.Name, a.Industry),
		fmt.Sprintf("Hey! Your background in %s sounds interesting.", skillText),
		fmt.Sprintf("Hello! I'd love to connect and learn more about your experience in %s.", b.Industry),
	}
}

// FallbackReport builds a deterministic compatibility report from the match
// data when the generation service is unavailable.
func FallbackReport(a, b *models.Profile, score float64, reasons []string) string {
	shared := sharedSkills(a, b)
	if len(shared) == 0 {
		shared = []string{"professional development"}
	}

	return strings.TrimSpace(fmt.Sprintf(`Compatibility Report for %s and %s

These two professionals show strong potential for a valuable networking connection with a compatibility score of %.1f/100.

%s

Both individuals bring unique strengths to the table. %s brings expertise in %s, while %s offers complementary skills in %s. Their shared values around %s work-life balance create a solid foundation for meaningful professional interactions.

Potential collaboration opportunities could arise from their overlapping interests in %s. They may benefit from sharing insights, exploring joint projects, or simply expanding their professional networks within similar domains.

This match presents an opportunity for mutual growth and knowledge exchange in their respective fields.`,
		a.Name, b.Name, score, strings.Join(reasons, " "),
		a.Name, a.Industry, b.Name, b.Industry, a.WorkLifePriority,
		strings.Join(shared, ", "),
	))
}

// FallbackProfiles returns a fixed sample roster, repeated to reach count.
func FallbackProfiles(count int) []models.NewProfileRequest {
	roster := []models.NewProfileRequest{
		{
			Name: "Alex", Age: 28, JobTitle: "Software Engineer", Industry: "Technology",
			Schedule: "flexible", AmbitionLevel: 8, StressLevel: 6, WorkLifePriority: "balanced",
			Skills: []string{"Python", "React", "AWS", "Docker"},
			Goals:  []string{"Lead a team", "Build scalable products"},
			Bio:    "Passionate software engineer with 5 years of experience building web applications. Love solving complex problems and learning new technologies.",
			LookingFor: "Tech professionals to collaborate on projects and share knowledge",
		},
		{
			Name: "Jordan", Age: 32, JobTitle: "Product Manager", Industry: "Technology",
			Schedule: "standard", AmbitionLevel: 7, StressLevel: 7, WorkLifePriority: "balanced",
			Skills: []string{"Product Strategy", "Agile", "Data Analysis", "UX"},
			Goals:  []string{"Launch successful products", "Build strong teams"},
			Bio:    "Product manager with a passion for creating user-centric solutions. Enjoy working at the intersection of technology and business.",
			LookingFor: "Product and engineering professionals for mentorship and collaboration",
		},
		{
			Name: "Morgan", Age: 35, JobTitle: "Financial Analyst", Industry: "Finance",
			Schedule: "busy", AmbitionLevel: 9, StressLevel: 8, WorkLifePriority: "work-focused",
			Skills: []string{"Financial Modeling", "Excel", "Data Analysis", "SQL"},
			Goals:  []string{"Become a CFO", "Lead financial strategy"},
			Bio:    "Driven financial analyst with expertise in financial modeling and strategic planning. Always looking to grow and take on new challenges.",
			LookingFor: "Finance professionals and executives for career growth and networking",
		},
	}

	if count <= 0 {
		return nil
	}
	profiles := make([]models.NewProfileRequest, 0, count)
	for len(profiles) < count {
		profiles = append(profiles, roster[len(profiles)%len(roster)])
	}
	return profiles
}

func sharedSkills(a, b *models.Profile) []string {
	seen := make(map[string]struct{}, len(a.Skills))
	for _, s := range a.Skills {
		seen[s] = struct{}{}
	}
	var shared []string
	for _, s := range b.Skills {
		if _, ok := seen[s]; ok {
			shared = append(shared, s)
		}
	}
	return shared
}
