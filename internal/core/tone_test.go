package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestToneScoreWeighting(t *testing.T) {
	assert.Equal(t, 0, toneScore(&SentimentScores{}))
	assert.Equal(t, 18, toneScore(&SentimentScores{Urgency: 100, Stress: 100, Anger: 100}))
	assert.Equal(t, 9, toneScore(&SentimentScores{Urgency: 100}))
	assert.Equal(t, 6, toneScore(&SentimentScores{Stress: 100}))
	assert.Equal(t, 3, toneScore(&SentimentScores{Anger: 100}))
}

func TestToneExcitementDiscounts(t *testing.T) {
	plain := toneScore(&SentimentScores{Urgency: 50})
	excited := toneScore(&SentimentScores{Urgency: 50, Excitement: 100})
	assert.Less(t, excited, plain)

	// Never below zero
	assert.Equal(t, 0, toneScore(&SentimentScores{Excitement: 100}))
}

func TestRuleBasedSentimentUrgentText(t *testing.T) {
	scores := RuleBasedSentiment("URGENT!!! The deadline is now, hurry!")
	assert.Equal(t, 100, scores.Urgency)
	assert.Equal(t, 0, scores.Excitement)
}

func TestRuleBasedSentimentCalmText(t *testing.T) {
	scores := RuleBasedSentiment("Sharing the quarterly summary. No action needed.")
	assert.Equal(t, 0, scores.Urgency)
	assert.Equal(t, 0, scores.Stress)
	assert.Equal(t, 0, scores.Anger)
}

func TestRuleBasedSentimentExcitedText(t *testing.T) {
	scores := RuleBasedSentiment("Congratulations, this is great news! So excited for you.")
	assert.GreaterOrEqual(t, scores.Excitement, 50)
}

func TestCapsWordRatio(t *testing.T) {
	assert.Equal(t, 1.0, capsWordRatio("SEND THE REPORT"))
	assert.Equal(t, 0.0, capsWordRatio("send the report"))
	// Short words like "OK" and "I" are not counted
	assert.Equal(t, 0.0, capsWordRatio("OK I am on it"))
}

func TestToneScorerUsesAnalyzer(t *testing.T) {
	analyzer := &fakeAnalyzer{scores: &SentimentScores{Urgency: 80, Stress: 60}}
	scorer := NewToneScorer(analyzer, time.Second, zap.NewNop())

	c := scorer.Score(context.Background(), testEmail("t", "a@b.com", "s", "calm text"))

	// 0.45*80 + 0.30*60 = 54 -> 10.8 -> 11
	assert.Equal(t, 11, c.Score)
	assert.Equal(t, 1.0, c.Certainty)
	assert.Contains(t, c.Reason, "fake")
}

func TestToneScorerFallsBackOnError(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("timeout")}
	scorer := NewToneScorer(analyzer, time.Second, zap.NewNop())

	c := scorer.Score(context.Background(), testEmail("t", "a@b.com", "s", "calm text"))

	assert.Equal(t, 0.6, c.Certainty)
	assert.Contains(t, c.Reason, "rule-based fallback")
}

func TestToneScorerNoAnalyzer(t *testing.T) {
	scorer := NewToneScorer(nil, time.Second, zap.NewNop())

	c := scorer.Score(context.Background(), testEmail("t", "a@b.com", "URGENT", "Need this immediately!"))

	assert.Equal(t, 0.6, c.Certainty)
	assert.Greater(t, c.Score, 0)
	assert.LessOrEqual(t, c.Score, ToneMax)
}
