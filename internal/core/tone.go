package core

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// ToneMax is the emotional-tone component's share of the total score
const ToneMax = 20

// Tone weighting per sub-score; excitement discounts the result
const (
	toneWeightUrgency    = 0.45
	toneWeightStress     = 0.30
	toneWeightAnger      = 0.15
	toneWeightExcitement = 0.10
)

var (
	urgencyWords = []string{"urgent", "asap", "immediately", "deadline", "critical", "emergency", "now", "hurry"}
	stressWords  = []string{"stress", "worried", "concerned", "pressure", "overwhelmed", "struggling", "please help", "desperate"}
	angerWords   = []string{"unacceptable", "ridiculous", "furious", "angry", "frustrated", "disappointed", "complaint", "outrageous"}
	excitedWords = []string{"great", "awesome", "excited", "congratulations", "amazing", "fantastic", "wonderful", "thrilled"}
)

// ToneScorer estimates stress/urgency/anger/excitement from text. When an
// external sentiment collaborator is configured it is consulted with a
// bounded timeout; any failure falls back to the deterministic rule-based
// estimate, which never fails.
type ToneScorer struct {
	analyzer SentimentAnalyzer
	timeout  time.Duration
	logger   *zap.Logger
}

// NewToneScorer creates a new tone scorer. analyzer may be nil, in which
// case only the rule-based path is used.
func NewToneScorer(analyzer SentimentAnalyzer, timeout time.Duration, logger *zap.Logger) *ToneScorer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ToneScorer{
		analyzer: analyzer,
		timeout:  timeout,
		logger:   logger,
	}
}

// Score computes the emotional-tone component
func (s *ToneScorer) Score(ctx context.Context, email *Email) ScoreComponent {
	text := email.Subject + "\n\n" + email.Body

	if s.analyzer != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		scores, err := s.analyzer.Analyze(callCtx, text)
		cancel()
		if err == nil && scores != nil {
			return ScoreComponent{
				Name:      "Emotional Tone",
				Score:     toneScore(scores),
				Max:       ToneMax,
				Reason:    toneReason(scores, s.analyzer.Name()),
				Certainty: 1.0,
			}
		}
		s.logger.Warn("Sentiment collaborator failed, using rule-based fallback",
			zap.String("provider", s.analyzer.Name()),
			zap.Error(err))
	}

	scores := RuleBasedSentiment(text)
	return ScoreComponent{
		Name:      "Emotional Tone",
		Score:     toneScore(scores),
		Max:       ToneMax,
		Reason:    toneReason(scores, "rule-based fallback"),
		Certainty: 0.6,
	}
}

// toneScore maps the four 0-100 sub-scores into [0,20]
func toneScore(t *SentimentScores) int {
	weighted := toneWeightUrgency*float64(t.Urgency) +
		toneWeightStress*float64(t.Stress) +
		toneWeightAnger*float64(t.Anger) -
		toneWeightExcitement*float64(t.Excitement)
	score := int(math.Round(weighted / 100 * ToneMax))
	if score < 0 {
		return 0
	}
	if score > ToneMax {
		return ToneMax
	}
	return score
}

func toneReason(t *SentimentScores, source string) string {
	var indicators []string
	switch {
	case t.Urgency >= 70:
		indicators = append(indicators, "high urgency")
	case t.Urgency >= 40:
		indicators = append(indicators, "moderate urgency")
	}
	switch {
	case t.Stress >= 70:
		indicators = append(indicators, "high stress")
	case t.Stress >= 40:
		indicators = append(indicators, "some stress")
	}
	switch {
	case t.Anger >= 60:
		indicators = append(indicators, "frustration")
	case t.Anger >= 30:
		indicators = append(indicators, "mild frustration")
	}
	if t.Excitement >= 60 {
		indicators = append(indicators, "positive tone")
	}

	if len(indicators) == 0 {
		return fmt.Sprintf("Neutral tone (%s)", source)
	}
	return fmt.Sprintf("Tone: %s (%s)", strings.Join(indicators, ", "), source)
}

// RuleBasedSentiment is the deterministic fallback estimate. Exclamation
// marks, ALL-CAPS ratio and keyword densities each map to 0-100 through
// fixed saturation steps.
func RuleBasedSentiment(text string) *SentimentScores {
	lower := strings.ToLower(text)

	exclaims := strings.Count(text, "!")
	caps := capsWordRatio(text)

	urgency := saturate(countMatches(lower, urgencyWords)*30 + exclaims*10 + int(caps*50))
	stress := saturate(countMatches(lower, stressWords)*25 + exclaims*5)
	anger := saturate(countMatches(lower, angerWords)*30 + int(caps*40))
	excitement := saturate(countMatches(lower, excitedWords) * 25)

	return &SentimentScores{
		Urgency:    urgency,
		Stress:     stress,
		Anger:      anger,
		Excitement: excitement,
	}
}

func saturate(n int) int {
	if n > 100 {
		return 100
	}
	if n < 0 {
		return 0
	}
	return n
}

func countMatches(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// capsWordRatio is the fraction of words of three or more letters written
// entirely in capitals
func capsWordRatio(text string) float64 {
	words := strings.Fields(text)
	total := 0
	caps := 0
	for _, w := range words {
		letters := 0
		upper := 0
		for _, r := range w {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters >= 3 {
			total++
			if upper == letters {
				caps++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(caps) / float64(total)
}
