package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/illegalcall/match-master/internal/models"
)

const defaultModel = "gemini-2.0-flash"

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

// NewGeminiGenerator creates a generator for the Gemini API backend. Every
// request is bounded by timeout so a slow model can never stall match
// creation.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &GeminiGenerator{client: client, modelName: model, timeout: timeout}, nil
}

func (g *GeminiGenerator) ConversationStarters(ctx context.Context, a, b *models.Profile) ([]string, error) {
	prompt := fmt.Sprintf(`Generate 3-5 engaging conversation starters for two professionals who just matched on a networking platform.

Profile 1:
- Name: %s
- Job: %s in %s
- Bio: %s
- Skills: %s
- Goals: %s

Profile 2:
- Name: %s
- Job: %s in %s
- Bio: %s
- Skills: %s
- Goals: %s

Return ONLY a JSON array of strings, each string being a conversation starter. Be specific, engaging, and reference their common interests or complementary skills. No additional text, just the JSON array.`,
		a.Name, a.JobTitle, a.Industry, a.Bio, joinTop(a.Skills, 5), joinTop(a.Goals, 3),
		b.Name, b.JobTitle, b.Industry, b.Bio, joinTop(b.Skills, 5), joinTop(b.Goals, 3),
	)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var starters []string
	if err := json.Unmarshal([]byte(extractJSON(raw)), &starters); err != nil {
		return nil, fmt.Errorf("%w: parse starters: %v", ErrUnavailable, err)
	}
	starters = pruneEmpty(starters)
	if len(starters) == 0 {
		return nil, fmt.Errorf("%w: model returned no starters", ErrUnavailable)
	}
	if len(starters) > 5 {
		starters = starters[:5]
	}
	return starters, nil
}

func (g *GeminiGenerator) CompatibilityReport(ctx context.Context, a, b *models.Profile, score float64, reasons []string) (string, error) {
	prompt := fmt.Sprintf(`Generate a detailed, professional compatibility report for two professionals who matched on a networking platform.

Profile 1:
- Name: %s
- Age: %d
- Job: %s in %s
- Bio: %s
- Skills: %s
- Goals: %s
- Work-life priority: %s
- Ambition level: %d/10

Profile 2:
- Name: %s
- Age: %d
- Job: %s in %s
- Bio: %s
- Skills: %s
- Goals: %s
- Work-life priority: %s
- Ambition level: %d/10

Compatibility Score: %.1f/100
Key Reasons: %s

Generate a 3-4 paragraph compatibility report that:
1. Highlights their complementary strengths
2. Explains why they're a good match
3. Suggests potential collaboration opportunities
4. Provides insights on how they can benefit each other

Be professional, insightful, and encouraging.`,
		a.Name, a.Age, a.JobTitle, a.Industry, a.Bio, strings.Join(a.Skills, ", "), strings.Join(a.Goals, ", "), a.WorkLifePriority, a.AmbitionLevel,
		b.Name, b.Age, b.JobTitle, b.Industry, b.Bio, strings.Join(b.Skills, ", "), strings.Join(b.Goals, ", "), b.WorkLifePriority, b.AmbitionLevel,
		score, strings.Join(reasons, ", "),
	)

	report, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return "", fmt.Errorf("%w: model returned empty report", ErrUnavailable)
	}
	return report, nil
}

func (g *GeminiGenerator) SampleProfiles(ctx context.Context, count int) ([]models.NewProfileRequest, error) {
	prompt := fmt.Sprintf(`Generate %d diverse, realistic professional profiles for a networking platform. Each profile should include:
- name (first name only)
- age (25-55)
- job_title (realistic job title)
- industry (tech, finance, healthcare, marketing, consulting, etc.)
- schedule (flexible, standard, busy, remote)
- ambition_level (1-10)
- stress_level (1-10)
- work_life_priority (work-focused, balanced, life-focused)
- skills (array of 3-5 skills)
- goals (array of 2-3 career goals)
- bio (2-3 sentences)
- looking_for (what they're looking for in connections)

Return ONLY a valid JSON array of objects. No additional text. Make profiles diverse in industries, ages, and career stages.`, count)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var profiles []models.NewProfileRequest
	if err := json.Unmarshal([]byte(extractJSON(raw)), &profiles); err != nil {
		return nil, fmt.Errorf("%w: parse profiles: %v", ErrUnavailable, err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: model returned no profiles", ErrUnavailable)
	}
	if len(profiles) > count {
		profiles = profiles[:count]
	}
	return profiles, nil
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.client == nil {
		return "", fmt.Errorf("%w: generator is not initialized", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return output, nil
}

// extractJSON strips a markdown code fence if the model wrapped its answer in
// one. Anything beyond that is the JSON decoder's problem.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

func pruneEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

func joinTop(values []string, n int) string {
	if len(values) > n {
		values = values[:n]
	}
	return strings.Join(values, ", ")
}
