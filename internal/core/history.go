package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// HistoryMax is the historical-pattern component's share of the total score
const HistoryMax = 15

const historyBaseline = 7

// Dual-factor policy: reply rate signals which senders the user reliably
// answers; the recency factor bumps frequent senders who have gone quiet
const (
	historyWeightReplyRate = 0.6
	historyWeightRecency   = 0.4
)

// HistoryScorer scores an email by the user's interaction record with its
// sender
type HistoryScorer struct {
	store  SenderHistoryStore
	logger *zap.Logger
}

// NewHistoryScorer creates a new history scorer. store may be nil.
func NewHistoryScorer(store SenderHistoryStore, logger *zap.Logger) *HistoryScorer {
	return &HistoryScorer{
		store:  store,
		logger: logger,
	}
}

// Score computes the historical-pattern component. Unknown senders and store
// failures both take the fixed mid-baseline.
func (s *HistoryScorer) Score(ctx context.Context, email *Email) ScoreComponent {
	if s.store == nil {
		return historyBaselineComponent("No history store configured")
	}

	history, err := s.store.Get(ctx, normalizeAddress(email.From))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Sender history lookup failed",
				zap.String("sender", email.From),
				zap.Error(err))
			return historyBaselineComponent("History store unreachable")
		}
		return historyBaselineComponent("New sender, no history")
	}

	anchor := email.ReceivedAt
	if anchor.IsZero() {
		anchor = time.Now()
	}

	replyRate := history.ReplyRate()
	replyScore := replyRate * HistoryMax * historyWeightReplyRate

	recencyFactor, cadence := recencySignal(history, anchor)
	recencyScore := recencyFactor * HistoryMax * historyWeightRecency

	score := int(math.Round(replyScore + recencyScore))
	if score > HistoryMax {
		score = HistoryMax
	}
	if score < 0 {
		score = 0
	}

	reason := fmt.Sprintf("History: reply rate %.0f%% (%d of %d), %s",
		replyRate*100, history.EmailsReplied, history.EmailsReceived, cadence)

	return ScoreComponent{
		Name:      "Historical Pattern",
		Score:     score,
		Max:       HistoryMax,
		Reason:    reason,
		Certainty: 1.0,
	}
}

// recencySignal compares the gap since the last interaction to the sender's
// typical inter-email interval. A frequent sender gone quiet earns a
// re-engagement bump.
func recencySignal(h *SenderHistory, anchor time.Time) (float64, string) {
	avg := h.AvgInterval()
	if avg == 0 || h.EmailsReceived < 3 {
		return 0.25, "cadence unknown"
	}

	gap := anchor.Sub(h.LastInteraction)
	switch {
	case gap >= 2*avg:
		return 1.0, "gone quiet, due for re-engagement"
	case gap >= avg:
		return 0.6, "slightly overdue cadence"
	default:
		return 0.5, "regular cadence"
	}
}

func historyBaselineComponent(reason string) ScoreComponent {
	return ScoreComponent{
		Name:      "Historical Pattern",
		Score:     historyBaseline,
		Max:       HistoryMax,
		Reason:    reason,
		Certainty: 0.6,
	}
}
