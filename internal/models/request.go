package models

// NewProfileRequest is the payload for creating a profile. It doubles as the
// shape the sample-profile generator produces.
type NewProfileRequest struct {
	Name             string   `json:"name"`
	Age              int      `json:"age"`
	JobTitle         string   `json:"job_title"`
	Industry         string   `json:"industry"`
	Schedule         string   `json:"schedule"`
	AmbitionLevel    int      `json:"ambition_level"`
	StressLevel      int      `json:"stress_level"`
	WorkLifePriority string   `json:"work_life_priority"`
	Skills           []string `json:"skills"`
	Goals            []string `json:"goals"`
	Bio              string   `json:"bio"`
	LookingFor       string   `json:"looking_for"`
}

// LikeRequest is the payload for POST /api/match/like.
type LikeRequest struct {
	LikerID string `json:"liker_id"`
	LikedID string `json:"liked_id"`
}

// PassRequest is the payload for POST /api/match/pass.
type PassRequest struct {
	PasserID string `json:"passer_id"`
	PassedID string `json:"passed_id"`
}

// FindMatchesRequest is the payload for POST /api/match/find.
type FindMatchesRequest struct {
	ProfileID  string `json:"profile_id"`
	MaxResults int    `json:"max_results"`
}

// GenerateSamplesRequest is the payload for POST /api/generate-samples.
type GenerateSamplesRequest struct {
	Count int `json:"count"`
}

// Stats summarizes the platform. Served by GET /api/stats and refreshed by
// the stats worker whenever a match is created.
type Stats struct {
	TotalProfiles        int            `json:"total_profiles"`
	TotalLikes           int            `json:"total_likes"`
	TotalMatches         int            `json:"total_matches"`
	IndustryBreakdown    map[string]int `json:"industry_breakdown"`
	AverageCompatibility float64        `json:"average_compatibility"`
}

// MatchCreatedEvent is published to Kafka after a match is durably persisted.
type MatchCreatedEvent struct {
	MatchID            string  `json:"match_id"`
	Profile1ID         string  `json:"profile1_id"`
	Profile2ID         string  `json:"profile2_id"`
	CompatibilityScore float64 `json:"compatibility_score"`
	MatchType          string  `json:"match_type"`
}
