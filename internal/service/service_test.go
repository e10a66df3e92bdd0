package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illegalcall/match-master/internal/enrichment"
	"github.com/illegalcall/match-master/internal/models"
	"github.com/illegalcall/match-master/internal/store"
)

// MockProducer implements sarama.SyncProducer and records sent messages.
type MockProducer struct {
	mu       sync.Mutex
	messages []*sarama.ProducerMessage
}

func (p *MockProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return 0, 0, nil
}

func (p *MockProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	for _, msg := range msgs {
		p.SendMessage(msg)
	}
	return nil
}

func (p *MockProducer) Close() error { return nil }

func (p *MockProducer) AbortTxn() error { return nil }
func (p *MockProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupId string, topic *string) error {
	return nil
}
func (p *MockProducer) BeginTxn() error                         { return nil }
func (p *MockProducer) CommitTxn() error                        { return nil }
func (p *MockProducer) TxnStatus() sarama.ProducerTxnStatusFlag { return 0 }
func (p *MockProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return nil
}
func (p *MockProducer) IsTransactional() bool { return false }

func (p *MockProducer) sent() []*sarama.ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*sarama.ProducerMessage(nil), p.messages...)
}

// stubGenerator counts invocations and returns canned content, or fails when
// told to.
type stubGenerator struct {
	mu           sync.Mutex
	starterCalls int
	reportCalls  int
	sampleCalls  int
	fail         bool
}

func (g *stubGenerator) ConversationStarters(ctx context.Context, a, b *models.Profile) ([]string, error) {
	g.mu.Lock()
	g.starterCalls++
	g.mu.Unlock()
	if g.fail {
		return nil, enrichment.ErrUnavailable
	}
	return []string{"generated starter"}, nil
}

func (g *stubGenerator) CompatibilityReport(ctx context.Context, a, b *models.Profile, score float64, reasons []string) (string, error) {
	g.mu.Lock()
	g.reportCalls++
	g.mu.Unlock()
	if g.fail {
		return "", enrichment.ErrUnavailable
	}
	return "generated report", nil
}

func (g *stubGenerator) SampleProfiles(ctx context.Context, count int) ([]models.NewProfileRequest, error) {
	g.mu.Lock()
	g.sampleCalls++
	g.mu.Unlock()
	if g.fail {
		return nil, enrichment.ErrUnavailable
	}
	samples := make([]models.NewProfileRequest, 0, count)
	for i := 0; i < count; i++ {
		samples = append(samples, models.NewProfileRequest{
			Name:             "Sample",
			Age:              30,
			JobTitle:         "Engineer",
			Industry:         "Technology",
			WorkLifePriority: "balanced",
		})
	}
	return samples, nil
}

func newTestService(t *testing.T) (*MatchService, *stubGenerator, *MockProducer) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	gen := &stubGenerator{}
	producer := &MockProducer{}
	svc := NewMatchService(st, gen, producer, "match-events", nil)
	return svc, gen, producer
}

func seedProfile(t *testing.T, svc *MatchService, name string) *models.Profile {
	t.Helper()
	p, err := svc.CreateProfile(context.Background(), models.NewProfileRequest{
		Name:             name,
		Age:              30,
		JobTitle:         "Engineer",
		Industry:         "Technology",
		Schedule:         "flexible",
		AmbitionLevel:    7,
		StressLevel:      5,
		WorkLifePriority: "balanced",
		Skills:           []string{"Go", "Kubernetes"},
		Goals:            []string{"startup"},
	})
	require.NoError(t, err)
	return p
}

func TestCreateProfile(t *testing.T) {
	svc, _, _ := newTestService(t)

	t.Run("valid", func(t *testing.T) {
		p := seedProfile(t, svc, "Sarah")
		got, err := svc.GetProfile(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sarah", got.Name)
	})

	t.Run("invalid request is rejected", func(t *testing.T) {
		_, err := svc.CreateProfile(context.Background(), models.NewProfileRequest{Name: "No Job"})
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestLike(t *testing.T) {
	ctx := context.Background()

	t.Run("one-directional like creates no match", func(t *testing.T) {
		svc, _, producer := newTestService(t)
		a := seedProfile(t, svc, "A")
		b := seedProfile(t, svc, "B")

		match, matched, err := svc.Like(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, matched)
		assert.Nil(t, match)
		assert.Empty(t, producer.sent())

		got, err := svc.GetProfile(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.HasLiked(b.ID))
	})

	t.Run("mutual like creates exactly one match", func(t *testing.T) {
		svc, _, producer := newTestService(t)
		a := seedProfile(t, svc, "A")
		b := seedProfile(t, svc, "B")

		_, matched, err := svc.Like(ctx, a.ID, b.ID)
		require.NoError(t, err)
		require.False(t, matched)

		match, matched, err := svc.Like(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.True(t, matched)
		require.NotNil(t, match)
		assert.True(t, match.Involves(a.ID))
		assert.True(t, match.Involves(b.ID))
		assert.Greater(t, match.CompatibilityScore, 0.0)
		assert.Equal(t, []string{"generated starter"}, match.ConversationStarters)

		// match id lands on both profiles
		for _, id := range []string{a.ID, b.ID} {
			p, err := svc.GetProfile(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, []string{match.ID}, p.Matches)
		}

		// one match.created event on the wire
		msgs := producer.sent()
		require.Len(t, msgs, 1)
		assert.Equal(t, "match-events", msgs[0].Topic)
		raw, err := msgs[0].Value.Encode()
		require.NoError(t, err)
		var event models.MatchCreatedEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, match.ID, event.MatchID)
	})

	t.Run("repeat trigger returns the existing match", func(t *testing.T) {
		svc, _, producer := newTestService(t)
		a := seedProfile(t, svc, "A")
		b := seedProfile(t, svc, "B")

		_, _, err := svc.Like(ctx, a.ID, b.ID)
		require.NoError(t, err)
		first, matched, err := svc.Like(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.True(t, matched)

		second, matched, err := svc.Like(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.True(t, matched)
		assert.Equal(t, first.ID, second.ID)

		// no second event
		assert.Len(t, producer.sent(), 1)
	})

	t.Run("self-like is rejected", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		a := seedProfile(t, svc, "A")
		_, _, err := svc.Like(ctx, a.ID, a.ID)
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown profiles", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		a := seedProfile(t, svc, "A")

		_, _, err := svc.Like(ctx, a.ID, "ghost")
		assert.ErrorIs(t, err, store.ErrNotFound)

		_, _, err = svc.Like(ctx, "ghost", a.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent mutual likes yield one match", func(t *testing.T) {
		svc, _, producer := newTestService(t)
		a := seedProfile(t, svc, "A")
		b := seedProfile(t, svc, "B")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := svc.Like(ctx, a.ID, b.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, _, err := svc.Like(ctx, b.ID, a.ID)
			assert.NoError(t, err)
		}()
		wg.Wait()

		matches, err := svc.MatchesForProfile(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, matches, 1)

		gotA, err := svc.GetProfile(ctx, a.ID)
		require.NoError(t, err)
		gotB, err := svc.GetProfile(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, gotA.Matches, 1)
		assert.Equal(t, gotA.Matches, gotB.Matches)

		assert.LessOrEqual(t, len(producer.sent()), 1)
	})
}

func TestLikeWithFailingEnricher(t *testing.T) {
	ctx := context.Background()
	svc, gen, _ := newTestService(t)
	gen.fail = true
	a := seedProfile(t, svc, "A")
	b := seedProfile(t, svc, "B")

	_, _, err := svc.Like(ctx, a.ID, b.ID)
	require.NoError(t, err)
	match, matched, err := svc.Like(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.True(t, matched)

	// fallback starters still attached
	require.NotEmpty(t, match.ConversationStarters)
	assert.NotEqual(t, "generated starter", match.ConversationStarters[0])
}

func TestPass(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	a := seedProfile(t, svc, "A")
	b := seedProfile(t, svc, "B")

	t.Run("self-pass is rejected", func(t *testing.T) {
		err := svc.Pass(ctx, a.ID, a.ID)
		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("pass never undoes a like", func(t *testing.T) {
		_, _, err := svc.Like(ctx, a.ID, b.ID)
		require.NoError(t, err)
		require.NoError(t, svc.Pass(ctx, a.ID, b.ID))

		got, err := svc.GetProfile(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.HasLiked(b.ID))
		assert.True(t, got.HasPassed(b.ID))
	})
}

func TestFindMatchesExcludesPassed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	a := seedProfile(t, svc, "A")
	b := seedProfile(t, svc, "B")
	c := seedProfile(t, svc, "C")

	require.NoError(t, svc.Pass(ctx, a.ID, b.ID))

	candidates, err := svc.FindMatches(ctx, a.ID, 20)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, c.ID, candidates[0].Profile.ID)
}

func TestCompatibilityReport(t *testing.T) {
	ctx := context.Background()

	matchedPair := func(t *testing.T, svc *MatchService) *models.Match {
		a := seedProfile(t, svc, "A")
		b := seedProfile(t, svc, "B")
		_, _, err := svc.Like(ctx, a.ID, b.ID)
		require.NoError(t, err)
		match, matched, err := svc.Like(ctx, b.ID, a.ID)
		require.NoError(t, err)
		require.True(t, matched)
		return match
	}

	t.Run("generated once and cached", func(t *testing.T) {
		svc, gen, _ := newTestService(t)
		match := matchedPair(t, svc)

		report, err := svc.CompatibilityReport(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, "generated report", report)

		again, err := svc.CompatibilityReport(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, report, again)
		assert.Equal(t, 1, gen.reportCalls)
	})

	t.Run("falls back when the generator fails", func(t *testing.T) {
		svc, gen, _ := newTestService(t)
		match := matchedPair(t, svc)
		gen.fail = true

		report, err := svc.CompatibilityReport(ctx, match.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, report)
		assert.True(t, strings.Contains(report, "A") || strings.Contains(report, "B"))
	})

	t.Run("unknown match", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CompatibilityReport(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestMatchesForProfile(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	a := seedProfile(t, svc, "A")
	b := seedProfile(t, svc, "B")

	_, _, err := svc.Like(ctx, a.ID, b.ID)
	require.NoError(t, err)
	match, matched, err := svc.Like(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.True(t, matched)

	t.Run("includes the other participant", func(t *testing.T) {
		details, err := svc.MatchesForProfile(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Equal(t, match.ID, details[0].Match.ID)
		require.NotNil(t, details[0].OtherProfile)
		assert.Equal(t, b.ID, details[0].OtherProfile.ID)
	})

	t.Run("tolerates a deleted participant", func(t *testing.T) {
		require.NoError(t, svc.DeleteProfile(ctx, b.ID))
		details, err := svc.MatchesForProfile(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, details, 1)
		assert.Nil(t, details[0].OtherProfile)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := svc.MatchesForProfile(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGenerateSamples(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the generator", func(t *testing.T) {
		svc, gen, _ := newTestService(t)
		profiles, err := svc.GenerateSamples(ctx, 4)
		require.NoError(t, err)
		assert.Len(t, profiles, 4)
		assert.Equal(t, 1, gen.sampleCalls)
	})

	t.Run("falls back to the roster", func(t *testing.T) {
		svc, gen, _ := newTestService(t)
		gen.fail = true
		profiles, err := svc.GenerateSamples(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, profiles, 3)
	})
}
