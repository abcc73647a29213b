package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const componentCount = 5

// PriorityService is the scoring engine root: it runs the five sub-scorers,
// aggregates their components into a ScoreResult and serves the batch and
// explanation variants. Scoring never mutates shared state.
type PriorityService struct {
	authority *AuthorityScorer
	deadline  *DeadlineScorer
	tone      *ToneScorer
	history   *HistoryScorer
	calendar  *CalendarScorer

	cache        ScoreCache
	cacheEnabled bool
	cacheTTL     time.Duration
	registry     ContactRegistry
	historyStore SenderHistoryStore

	batchWorkers   int
	terseBreakdown bool
	logger         *zap.Logger
}

// NewPriorityService creates the scoring engine. sentiment, checker and
// cache may be nil; registry and historyStore may be nil too, degrading the
// corresponding scorers to their baselines.
func NewPriorityService(
	registry ContactRegistry,
	historyStore SenderHistoryStore,
	sentiment SentimentAnalyzer,
	checker CalendarChecker,
	cache ScoreCache,
	logger *zap.Logger,
	cacheEnabled bool,
	cacheTTL time.Duration,
	collaboratorTimeout time.Duration,
	batchWorkers int,
	terseBreakdown bool,
) *PriorityService {
	if batchWorkers <= 0 {
		batchWorkers = 4
	}
	return &PriorityService{
		authority:      NewAuthorityScorer(registry, logger),
		deadline:       NewDeadlineScorer(logger),
		tone:           NewToneScorer(sentiment, collaboratorTimeout, logger),
		history:        NewHistoryScorer(historyStore, logger),
		calendar:       NewCalendarScorer(checker, collaboratorTimeout, logger),
		cache:          cache,
		cacheEnabled:   cacheEnabled && cache != nil,
		cacheTTL:       cacheTTL,
		registry:       registry,
		historyStore:   historyStore,
		batchWorkers:   batchWorkers,
		terseBreakdown: terseBreakdown,
		logger:         logger,
	}
}

// ScoreEmail computes the priority score for one email. It always returns a
// result for well-formed input; degraded collaborators only lower the
// confidence. On the terse path the breakdown may be omitted.
func (s *PriorityService) ScoreEmail(ctx context.Context, email *Email) (*ScoreResult, error) {
	result, err := s.score(ctx, email, !s.terseBreakdown)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExplainScore is the same computation with the breakdown guaranteed to be
// populated
func (s *PriorityService) ExplainScore(ctx context.Context, email *Email) (*ScoreResult, error) {
	return s.score(ctx, email, true)
}

// ScoreEmailBatch scores emails with a bounded worker pool. Results are
// keyed by email ID; completion order carries no meaning. One email's
// failure never affects the others.
func (s *PriorityService) ScoreEmailBatch(ctx context.Context, emails []*Email) (*BatchResult, error) {
	batch := &BatchResult{
		Results:     make(map[string]*ScoreResult, len(emails)),
		TotalEmails: len(emails),
	}
	if len(emails) == 0 {
		return batch, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.batchWorkers)
	)

	for _, email := range emails {
		wg.Add(1)
		sem <- struct{}{}
		go func(email *Email) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := s.score(ctx, email, !s.terseBreakdown)
			if err != nil {
				s.logger.Warn("Skipping email in batch",
					zap.String("email_id", email.ID),
					zap.Error(err))
				return
			}
			mu.Lock()
			batch.Results[result.EmailID] = result
			mu.Unlock()
		}(email)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := 0
	for _, r := range batch.Results {
		sum += r.TotalScore
	}
	if len(batch.Results) > 0 {
		batch.AvgScore = math.Round(float64(sum)/float64(len(batch.Results))*100) / 100
	}
	return batch, nil
}

// score runs one aggregation pass: validate, consult the cache, invoke the
// five sub-scorers concurrently, assemble the result atomically
func (s *PriorityService) score(ctx context.Context, email *Email, withBreakdown bool) (*ScoreResult, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	cacheKey := s.cacheKey(email)
	if s.cacheEnabled {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			s.logger.Debug("Score cache hit", zap.String("email_id", email.ID))
			return cached, nil
		} else if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Score cache read failed", zap.Error(err))
		}
	}

	// The five sub-scorers are independent; the tone and calendar scorers
	// may block on collaborator calls, so all run concurrently. Slots keep
	// the breakdown in fixed invocation order.
	var components [componentCount]ScoreComponent
	var wg sync.WaitGroup
	run := func(slot int, fn func(context.Context, *Email) ScoreComponent) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			components[slot] = fn(ctx, email)
		}()
	}
	run(0, s.authority.Score)
	run(1, s.deadline.Score)
	run(2, s.tone.Score)
	run(3, s.history.Score)
	run(4, s.calendar.Score)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		// Collaborator-backed scorers already degraded to their fallbacks
		// when the context died; the components are usable as a best-effort
		// result, but plain cancellation aborts with no result.
		return nil, err
	}

	total := 0
	certaintySum := 0.0
	for _, c := range components {
		total += c.Score
		certaintySum += c.Certainty
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}

	label, color, badge := LevelForScore(total)
	result := &ScoreResult{
		EmailID:    email.ID,
		ScoringID:  uuid.NewString(),
		TotalScore: total,
		Label:      label,
		Color:      color,
		Badge:      badge,
		Confidence: math.Round(certaintySum/componentCount*100) / 100,
		ScoredAt:   time.Now(),
	}
	if withBreakdown {
		result.Breakdown = components[:]
	}

	if s.cacheEnabled {
		if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
			s.logger.Warn("Score cache write failed", zap.Error(err))
		}
	}

	s.logger.Debug("Scored email",
		zap.String("email_id", email.ID),
		zap.Int("total_score", total),
		zap.String("label", string(label)),
		zap.Float64("confidence", result.Confidence))

	return result, nil
}

// cacheKey folds in the content hash and the store epochs so registry or
// history mutations invalidate previously cached scores
func (s *PriorityService) cacheKey(email *Email) string {
	var registryEpoch, historyEpoch uint64
	if s.registry != nil {
		registryEpoch = s.registry.Epoch()
	}
	if s.historyStore != nil {
		historyEpoch = s.historyStore.Epoch()
	}
	return fmt.Sprintf("%s:%x:%d:%d", email.ID, email.ContentHash(), registryEpoch, historyEpoch)
}

func validateEmail(email *Email) error {
	if email == nil {
		return &ValidationError{Field: "email", Reason: "is nil"}
	}
	if strings.TrimSpace(email.From) == "" {
		return &ValidationError{Field: "sender_email", Reason: "is missing"}
	}
	if strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.Body) == "" {
		return &ValidationError{Field: "subject/body", Reason: "are both empty"}
	}
	return nil
}
