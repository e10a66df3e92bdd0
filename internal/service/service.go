// Package service implements the like/pass/match lifecycle on top of the
// entity store, and orchestrates enrichment of newly created matches.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/illegalcall/match-master/internal/enrichment"
	"github.com/illegalcall/match-master/internal/matcher"
	"github.com/illegalcall/match-master/internal/models"
	"github.com/illegalcall/match-master/internal/store"
)

// MatchService owns the relationship state machine. All dependencies are
// injected; enricher and producer may be nil, in which case enrichment
// degrades to local fallbacks and no events are published.
type MatchService struct {
	store    store.Store
	enricher enrichment.Generator
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// MatchDetail pairs a match with the participant that is not the requesting
// profile.
type MatchDetail struct {
	Match        *models.Match   `json:"match"`
	OtherProfile *models.Profile `json:"other_profile,omitempty"`
}

func NewMatchService(st store.Store, enricher enrichment.Generator, producer sarama.SyncProducer, topic string, logger *slog.Logger) *MatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchService{
		store:    st,
		enricher: enricher,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// CreateProfile validates and persists a new profile.
func (s *MatchService) CreateProfile(ctx context.Context, req models.NewProfileRequest) (*models.Profile, error) {
	profile, err := models.NewProfile(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *MatchService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return s.store.GetProfile(ctx, id)
}

func (s *MatchService) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	return s.store.ListProfiles(ctx)
}

// DeleteProfile removes a profile. Deleting an unknown id is a no-op.
func (s *MatchService) DeleteProfile(ctx context.Context, id string) error {
	return s.store.DeleteProfile(ctx, id)
}

// FindMatches ranks every other profile against the seeker.
func (s *MatchService) FindMatches(ctx context.Context, profileID string, maxResults int) ([]matcher.Candidate, error) {
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	return matcher.FindMatches(profile, all, maxResults), nil
}

// Like records a one-directional like and, when it completes a mutual pair,
// creates the match. The returned bool reports whether a match now exists for
// the pair; a second trigger for an already matched pair hands back the
// existing match rather than failing.
func (s *MatchService) Like(ctx context.Context, likerID, likedID string) (*models.Match, bool, error) {
	if likerID == likedID {
		return nil, false, &models.ValidationError{Field: "liked_id", Reason: "a profile cannot like itself"}
	}

	// Both profiles must exist before anything mutates.
	if _, err := s.store.GetProfile(ctx, likedID); err != nil {
		return nil, false, err
	}
	liker, err := s.store.UpdateProfile(ctx, likerID, func(p *models.Profile) error {
		p.AddLike(likedID)
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	// Re-read the liked profile after our like is durable, so two
	// near-simultaneous mutual likes cannot both miss each other.
	liked, err := s.store.GetProfile(ctx, likedID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// deleted mid-flight; the like stands, no match
			return nil, false, nil
		}
		return nil, false, err
	}
	if !liked.HasLiked(likerID) {
		return nil, false, nil
	}

	match, err := s.createMutualMatch(ctx, liker, liked)
	if err != nil {
		return nil, false, err
	}
	return match, true, nil
}

// Pass records a one-directional pass. It never undoes a prior like; both may
// coexist on the same pair.
func (s *MatchService) Pass(ctx context.Context, passerID, passedID string) error {
	if passerID == passedID {
		return &models.ValidationError{Field: "passed_id", Reason: "a profile cannot pass on itself"}
	}
	_, err := s.store.UpdateProfile(ctx, passerID, func(p *models.Profile) error {
		p.AddPass(passedID)
		return nil
	})
	return err
}

// createMutualMatch scores the pair and claims it atomically. Exactly one
// caller wins the claim; everyone else observes the winner's match.
func (s *MatchService) createMutualMatch(ctx context.Context, liker, liked *models.Profile) (*models.Match, error) {
	result := matcher.Score(liker, liked)
	candidate := models.NewMatch(liker.ID, liked.ID, result.Score, result.Reasons, result.MatchType)

	match, created, err := s.store.CreateMatch(ctx, candidate)
	if err != nil {
		return nil, err
	}

	// Idempotent on the duplicate path too: a crashed winner may not have
	// finished appending the match id to both profiles.
	for _, id := range []string{match.Profile1ID, match.Profile2ID} {
		if _, err := s.store.UpdateProfile(ctx, id, func(p *models.Profile) error {
			p.AddMatch(match.ID)
			return nil
		}); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	if !created {
		return match, nil
	}

	s.logger.Info("Mutual match created",
		"match_id", match.ID,
		"profile1_id", match.Profile1ID,
		"profile2_id", match.Profile2ID,
		"score", match.CompatibilityScore,
		"match_type", match.MatchType,
	)

	s.publishMatchCreated(match)

	// Enrichment is best-effort and runs after the match is durable; a slow
	// or failing generator can only degrade the starter text.
	starters := s.conversationStarters(ctx, liker, liked)
	updated, err := s.store.UpdateMatch(ctx, match.ID, func(m *models.Match) error {
		if len(m.ConversationStarters) == 0 {
			m.ConversationStarters = starters
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to attach conversation starters", "match_id", match.ID, "error", err)
		return match, nil
	}
	return updated, nil
}

func (s *MatchService) conversationStarters(ctx context.Context, a, b *models.Profile) []string {
	if s.enricher != nil {
		starters, err := s.enricher.ConversationStarters(ctx, a, b)
		if err == nil {
			return starters
		}
		s.logger.Warn("Conversation starter generation failed; using fallback", "error", err)
	}
	return enrichment.FallbackStarters(a, b)
}

func (s *MatchService) publishMatchCreated(match *models.Match) {
	if s.producer == nil {
		return
	}
	event := models.MatchCreatedEvent{
		MatchID:            match.ID,
		Profile1ID:         match.Profile1ID,
		Profile2ID:         match.Profile2ID,
		CompatibilityScore: match.CompatibilityScore,
		MatchType:          match.MatchType,
	}
	eventBytes, _ := json.Marshal(event)
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(match.ID),
		Value: sarama.StringEncoder(eventBytes),
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		// fire-and-forget: stats refresh, not match correctness
		s.logger.Error("Failed to publish match.created event", "match_id", match.ID, "error", err)
	}
}

func (s *MatchService) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	return s.store.GetMatch(ctx, id)
}

// MatchesForProfile lists every match of a profile, each paired with the
// other participant's snapshot.
func (s *MatchService) MatchesForProfile(ctx context.Context, profileID string) ([]MatchDetail, error) {
	if _, err := s.store.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	matches, err := s.store.MatchesForProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	details := make([]MatchDetail, 0, len(matches))
	for _, m := range matches {
		detail := MatchDetail{Match: m}
		other, err := s.store.GetProfile(ctx, m.OtherProfile(profileID))
		if err == nil {
			detail.OtherProfile = other
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// CompatibilityReport returns the match's report, generating and caching it
// on first request. The write is once: concurrent generators race, the first
// persisted report wins, and later calls return the cached text without
// touching the generator again.
func (s *MatchService) CompatibilityReport(ctx context.Context, matchID string) (string, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return "", err
	}
	if match.CompatibilityReport != "" {
		return match.CompatibilityReport, nil
	}

	p1, err := s.store.GetProfile(ctx, match.Profile1ID)
	if err != nil {
		return "", fmt.Errorf("load match participants: %w", err)
	}
	p2, err := s.store.GetProfile(ctx, match.Profile2ID)
	if err != nil {
		return "", fmt.Errorf("load match participants: %w", err)
	}

	report := ""
	if s.enricher != nil {
		report, err = s.enricher.CompatibilityReport(ctx, p1, p2, match.CompatibilityScore, match.Reasons)
		if err != nil {
			s.logger.Warn("Compatibility report generation failed; using fallback", "match_id", matchID, "error", err)
			report = ""
		}
	}
	if report == "" {
		report = enrichment.FallbackReport(p1, p2, match.CompatibilityScore, match.Reasons)
	}

	updated, err := s.store.UpdateMatch(ctx, matchID, func(m *models.Match) error {
		if m.CompatibilityReport == "" {
			m.CompatibilityReport = report
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return updated.CompatibilityReport, nil
}

// GenerateSamples creates count sample profiles through the enrichment
// service, falling back to the fixed roster when it is unavailable.
func (s *MatchService) GenerateSamples(ctx context.Context, count int) ([]*models.Profile, error) {
	var requests []models.NewProfileRequest
	if s.enricher != nil {
		generated, err := s.enricher.SampleProfiles(ctx, count)
		if err == nil {
			requests = generated
		} else {
			s.logger.Warn("Sample profile generation failed; using fallback roster", "error", err)
		}
	}
	if requests == nil {
		requests = enrichment.FallbackProfiles(count)
	}

	profiles := make([]*models.Profile, 0, len(requests))
	for _, req := range requests {
		profile, err := s.CreateProfile(ctx, req)
		if err != nil {
			s.logger.Warn("Skipping invalid sample profile", "name", req.Name, "error", err)
			continue
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
