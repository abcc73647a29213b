package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRegistry struct {
	contacts map[string]*Contact
	err      error
	epoch    uint64
}

func (f *fakeRegistry) Lookup(ctx context.Context, identityKey string) (*Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	contact, ok := f.contacts[identityKey]
	if !ok {
		return nil, ErrNotFound
	}
	return contact, nil
}

func (f *fakeRegistry) Epoch() uint64 { return f.epoch }

type fakeHistoryStore struct {
	records map[string]*SenderHistory
	err     error
	epoch   uint64
}

func (f *fakeHistoryStore) Get(ctx context.Context, senderEmail string) (*SenderHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	history, ok := f.records[senderEmail]
	if !ok {
		return nil, ErrNotFound
	}
	return history, nil
}

func (f *fakeHistoryStore) RecordEmailReceived(ctx context.Context, senderEmail string, at time.Time) error {
	return nil
}

func (f *fakeHistoryStore) RecordReply(ctx context.Context, senderEmail string, responseTime time.Duration) error {
	return nil
}

func (f *fakeHistoryStore) Epoch() uint64 { return f.epoch }

type fakeAnalyzer struct {
	scores *SentimentScores
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) (*SentimentScores, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func (f *fakeAnalyzer) Name() string { return "fake" }

type fakeChecker struct {
	conflict bool
	err      error
}

func (f *fakeChecker) CheckConflict(ctx context.Context, window TimeWindow) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.conflict, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*ScoreResult
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*ScoreResult)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (*ScoreResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, result *ScoreResult, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = result
	return nil
}

func newTestService(registry ContactRegistry, history SenderHistoryStore, sentiment SentimentAnalyzer, checker CalendarChecker, cache ScoreCache) *PriorityService {
	cacheEnabled := cache != nil
	return NewPriorityService(registry, history, sentiment, checker, cache,
		zap.NewNop(), cacheEnabled, time.Hour, time.Second, 4, false)
}

func testEmail(id, from, subject, body string) *Email {
	return &Email{
		ID:         id,
		From:       from,
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestScoreEmailUrgentVIP(t *testing.T) {
	registry := &fakeRegistry{contacts: map[string]*Contact{
		"boss@corp.com": {Key: "boss@corp.com", Name: "The Boss", Level: AuthorityVIP},
	}}
	svc := newTestService(registry, nil, nil, nil, nil)

	email := testEmail("a1", "boss@corp.com",
		"URGENT: budget review",
		"Need your numbers ASAP, by tomorrow at the latest. Can we meet at 3pm?")

	result, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.TotalScore, 65)
	assert.LessOrEqual(t, result.TotalScore, 85)
	assert.Contains(t, []PriorityLabel{LabelHigh, LabelCritical}, result.Label)

	require.Len(t, result.Breakdown, 5)
	assert.Equal(t, 25, result.Breakdown[0].Score, "vip sender takes the full authority band")
	assert.Equal(t, 25, result.Breakdown[1].Score, "asap token takes the full deadline band")
}

func TestScoreEmailNewsletter(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeHistoryStore{}, nil, nil, nil)

	email := testEmail("b1", "news@updates.example.com",
		"Your weekend reading digest",
		"Here are five articles our editors enjoyed. Happy reading.")

	result, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	assert.Less(t, result.TotalScore, 20)
	assert.Equal(t, LabelMinimal, result.Label)
	assert.Equal(t, "gray", result.Color)
	assert.Equal(t, "[MIN]", result.Badge)
}

func TestScoreEmailClientMeeting(t *testing.T) {
	registry := &fakeRegistry{contacts: map[string]*Contact{
		"ana@client.io": {Key: "ana@client.io", Name: "Ana", Level: AuthorityClient},
	}}
	svc := newTestService(registry, &fakeHistoryStore{}, nil, nil, nil)

	email := testEmail("c1", "ana@client.io",
		"Contract review",
		"Can we schedule a call next week to go over the contract?")

	result, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	// authority 15 + deadline 12 (next week) + tone 0 + history baseline 7 +
	// calendar mention 10
	assert.Equal(t, 44, result.TotalScore)
	assert.Equal(t, LabelMedium, result.Label)
	assert.InDelta(t, 0.76, result.Confidence, 0.001)
}

func TestFallbackLowersConfidence(t *testing.T) {
	email := testEmail("d1", "pat@example.com",
		"Quick question",
		"Hi, quick question about the rollout plan when you have a minute.")

	sameAsRules := RuleBasedSentiment(email.Subject + "\n\n" + email.Body)

	primary := newTestService(&fakeRegistry{}, nil, &fakeAnalyzer{scores: sameAsRules}, nil, nil)
	degraded := newTestService(&fakeRegistry{}, nil, &fakeAnalyzer{err: errors.New("provider down")}, nil, nil)

	got, err := primary.ScoreEmail(context.Background(), email)
	require.NoError(t, err)
	fallback, err := degraded.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	assert.Equal(t, got.TotalScore, fallback.TotalScore)
	assert.Less(t, fallback.Confidence, got.Confidence)
}

func TestScoreEmailValidation(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.ScoreEmail(ctx, nil)
	assert.True(t, IsValidationError(err))

	_, err = svc.ScoreEmail(ctx, testEmail("v1", "", "subject", "body"))
	assert.True(t, IsValidationError(err))

	_, err = svc.ScoreEmail(ctx, testEmail("v2", "a@b.com", "", "   "))
	assert.True(t, IsValidationError(err))
}

func TestScoreNeverExceedsBounds(t *testing.T) {
	registry := &fakeRegistry{contacts: map[string]*Contact{
		"ceo@corp.com": {Key: "ceo@corp.com", Level: AuthorityVIP},
	}}
	history := &fakeHistoryStore{records: map[string]*SenderHistory{
		"ceo@corp.com": {
			SenderEmail:     "ceo@corp.com",
			EmailsReceived:  30,
			EmailsReplied:   30,
			FirstSeen:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			LastInteraction: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}}
	svc := newTestService(registry, history, nil, &fakeChecker{conflict: true}, nil)

	email := testEmail("m1", "ceo@corp.com",
		"URGENT EMERGENCY",
		"This is URGENT, deadline is today, respond immediately!!! Meeting at 2pm MUST happen ASAP, critical pressure!!!")

	result, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	assert.LessOrEqual(t, result.TotalScore, 100)
	for _, c := range result.Breakdown {
		assert.GreaterOrEqual(t, c.Score, 0)
		assert.LessOrEqual(t, c.Score, c.Max)
	}
	assert.Equal(t, LabelCritical, result.Label)
}

func TestScoreEmailCachedResultIsStable(t *testing.T) {
	cache := newFakeCache()
	svc := newTestService(&fakeRegistry{}, &fakeHistoryStore{}, nil, nil, cache)

	email := testEmail("s1", "pat@example.com", "Status update", "All milestones on track this sprint.")

	first, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)
	second, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	assert.Equal(t, first.ScoringID, second.ScoringID, "identical input within TTL returns the cached result")
	assert.Equal(t, first.TotalScore, second.TotalScore)
}

func TestRescoreUnchangedSnapshotMatchesSemantically(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeHistoryStore{}, nil, nil, nil)

	email := testEmail("s2", "pat@example.com", "Planning", "Draft plan attached, feedback welcome by Friday.")

	first, err := svc.ExplainScore(context.Background(), email)
	require.NoError(t, err)
	second, err := svc.ExplainScore(context.Background(), email)
	require.NoError(t, err)

	// ScoringID and ScoredAt identify the run; every field that carries
	// meaning must match across uncached passes over the same snapshot
	assert.NotEqual(t, first.ScoringID, second.ScoringID)
	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Color, second.Color)
	assert.Equal(t, first.Badge, second.Badge)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Breakdown, second.Breakdown)
}

func TestCacheKeyChangesWithStoreEpoch(t *testing.T) {
	registry := &fakeRegistry{contacts: map[string]*Contact{}}
	cache := newFakeCache()
	svc := newTestService(registry, &fakeHistoryStore{}, nil, nil, cache)

	email := testEmail("e1", "lee@corp.com", "Question", "Do you have the figures?")

	first, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	// Registry mutation bumps the epoch; the stale cached result no longer keys
	registry.contacts["lee@corp.com"] = &Contact{Key: "lee@corp.com", Level: AuthorityVIP}
	registry.epoch++

	second, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)

	assert.NotEqual(t, first.ScoringID, second.ScoringID)
	assert.Greater(t, second.TotalScore, first.TotalScore)
}

func TestExplainScoreAlwaysHasBreakdown(t *testing.T) {
	svc := NewPriorityService(nil, nil, nil, nil, nil,
		zap.NewNop(), false, 0, time.Second, 1, true)

	email := testEmail("x1", "pat@example.com", "Hello", "Just checking in.")

	terse, err := svc.ScoreEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Empty(t, terse.Breakdown)

	explained, err := svc.ExplainScore(context.Background(), email)
	require.NoError(t, err)
	require.Len(t, explained.Breakdown, 5)
	assert.Equal(t, terse.TotalScore, explained.TotalScore)
}

func TestScoreEmailBatch(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeHistoryStore{}, nil, nil, nil)

	emails := []*Email{
		testEmail("b1", "a@example.com", "One", "First message."),
		testEmail("b2", "b@example.com", "Two", "Second message, reply by tomorrow."),
		testEmail("b3", "", "Broken", "No sender on this one."),
	}

	batch, err := svc.ScoreEmailBatch(context.Background(), emails)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.TotalEmails)
	require.Len(t, batch.Results, 2, "invalid email is skipped, not fatal")

	sum := 0
	for _, r := range batch.Results {
		sum += r.TotalScore
	}
	assert.InDelta(t, float64(sum)/2, batch.AvgScore, 0.01)
}

func TestScoreEmailBatchDeterministicScores(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeHistoryStore{}, nil, nil, nil)

	var emails []*Email
	for i := 0; i < 20; i++ {
		emails = append(emails, testEmail(
			fmt.Sprintf("n%d", i),
			fmt.Sprintf("sender%d@example.com", i),
			"Planning", "Draft plan attached, feedback welcome by Friday."))
	}

	first, err := svc.ScoreEmailBatch(context.Background(), emails)
	require.NoError(t, err)
	second, err := svc.ScoreEmailBatch(context.Background(), emails)
	require.NoError(t, err)

	require.Len(t, second.Results, len(first.Results))
	for id, r := range first.Results {
		assert.Equal(t, r.TotalScore, second.Results[id].TotalScore, "email %s", id)
	}
	assert.Equal(t, first.AvgScore, second.AvgScore)
}

func TestScoreEmailCancelledContext(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeHistoryStore{}, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ScoreEmail(ctx, testEmail("z1", "a@example.com", "Hello", "Body."))
	assert.ErrorIs(t, err, context.Canceled)
}
