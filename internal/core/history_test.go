package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var historyAnchor = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func historyEmail(from string) *Email {
	return &Email{
		ID:         "h",
		From:       from,
		Subject:    "s",
		Body:       "b",
		ReceivedAt: historyAnchor,
	}
}

func TestHistoryNoStore(t *testing.T) {
	scorer := NewHistoryScorer(nil, zap.NewNop())

	c := scorer.Score(context.Background(), historyEmail("a@b.com"))

	assert.Equal(t, 7, c.Score)
	assert.Equal(t, 0.6, c.Certainty)
}

func TestHistoryUnknownSender(t *testing.T) {
	scorer := NewHistoryScorer(&fakeHistoryStore{}, zap.NewNop())

	c := scorer.Score(context.Background(), historyEmail("new@b.com"))

	assert.Equal(t, 7, c.Score)
	assert.Equal(t, 0.6, c.Certainty)
	assert.Contains(t, c.Reason, "no history")
}

func TestHistoryStoreUnavailable(t *testing.T) {
	scorer := NewHistoryScorer(&fakeHistoryStore{err: ErrStoreUnavailable}, zap.NewNop())

	c := scorer.Score(context.Background(), historyEmail("a@b.com"))

	assert.Equal(t, 7, c.Score)
	assert.Equal(t, 0.6, c.Certainty)
	assert.Contains(t, c.Reason, "unreachable")
}

func TestHistoryFrequentReplies(t *testing.T) {
	// 20 emails over 19 days, one-day cadence, last seen a day ago
	store := &fakeHistoryStore{records: map[string]*SenderHistory{
		"ana@client.io": {
			SenderEmail:     "ana@client.io",
			EmailsReceived:  20,
			EmailsReplied:   15,
			FirstSeen:       historyAnchor.AddDate(0, 0, -20),
			LastInteraction: historyAnchor.AddDate(0, 0, -1),
		},
	}}
	scorer := NewHistoryScorer(store, zap.NewNop())

	c := scorer.Score(context.Background(), historyEmail("ana@client.io"))

	// reply 0.75*15*0.6 = 6.75, recency 0.6*15*0.4 = 3.6, rounds to 10
	assert.Equal(t, 10, c.Score)
	assert.Equal(t, 1.0, c.Certainty)
	assert.Contains(t, c.Reason, "reply rate 75%")
}

func TestHistoryGoneQuietBumpsScore(t *testing.T) {
	regular := &SenderHistory{
		SenderEmail:     "x@y.com",
		EmailsReceived:  20,
		EmailsReplied:   15,
		FirstSeen:       historyAnchor.AddDate(0, 0, -20),
		LastInteraction: historyAnchor.Add(-12 * time.Hour),
	}
	quiet := &SenderHistory{
		SenderEmail:     "x@y.com",
		EmailsReceived:  20,
		EmailsReplied:   15,
		FirstSeen:       historyAnchor.AddDate(0, 0, -20),
		LastInteraction: historyAnchor.AddDate(0, 0, -5),
	}

	scorerRegular := NewHistoryScorer(&fakeHistoryStore{records: map[string]*SenderHistory{"x@y.com": regular}}, zap.NewNop())
	scorerQuiet := NewHistoryScorer(&fakeHistoryStore{records: map[string]*SenderHistory{"x@y.com": quiet}}, zap.NewNop())

	cRegular := scorerRegular.Score(context.Background(), historyEmail("x@y.com"))
	cQuiet := scorerQuiet.Score(context.Background(), historyEmail("x@y.com"))

	assert.Greater(t, cQuiet.Score, cRegular.Score)
	assert.Contains(t, cQuiet.Reason, "re-engagement")
}

func TestHistoryNeverRepliedLowScore(t *testing.T) {
	store := &fakeHistoryStore{records: map[string]*SenderHistory{
		"noise@list.com": {
			SenderEmail:     "noise@list.com",
			EmailsReceived:  50,
			EmailsReplied:   0,
			FirstSeen:       historyAnchor.AddDate(0, 0, -50),
			LastInteraction: historyAnchor.Add(-12 * time.Hour),
		},
	}}
	scorer := NewHistoryScorer(store, zap.NewNop())

	c := scorer.Score(context.Background(), historyEmail("noise@list.com"))

	// Reply factor contributes nothing, recency only: 0.5*15*0.4 = 3
	assert.Equal(t, 3, c.Score)
	assert.Contains(t, c.Reason, "reply rate 0%")
}

func TestHistoryTooFewEmailsCadenceUnknown(t *testing.T) {
	store := &fakeHistoryStore{records: map[string]*SenderHistory{
		"x@y.com": {
			SenderEmail:     "x@y.com",
			EmailsReceived:  2,
			EmailsReplied:   2,
			FirstSeen:       historyAnchor.AddDate(0, 0, -10),
			LastInteraction: historyAnchor.AddDate(0, 0, -5),
		},
	}}
	scorer := NewHistoryScorer(store, zap.NewNop())

	c := scorer.Score(context.Background(), historyEmail("x@y.com"))

	assert.Contains(t, c.Reason, "cadence unknown")
	// reply 1.0*15*0.6 = 9, recency 0.25*15*0.4 = 1.5, rounds to 11
	assert.Equal(t, 11, c.Score)
}

func TestReplyRateZeroReceived(t *testing.T) {
	h := &SenderHistory{}
	assert.Equal(t, 0.0, h.ReplyRate())
}
