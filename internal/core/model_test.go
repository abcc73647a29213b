package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score int
		label PriorityLabel
		color string
		badge string
	}{
		{0, LabelMinimal, "gray", "[MIN]"},
		{19, LabelMinimal, "gray", "[MIN]"},
		{20, LabelLow, "green", "[LOW]"},
		{39, LabelLow, "green", "[LOW]"},
		{40, LabelMedium, "yellow", "[MEDIUM]"},
		{59, LabelMedium, "yellow", "[MEDIUM]"},
		{60, LabelHigh, "orange", "[HIGH]"},
		{79, LabelHigh, "orange", "[HIGH]"},
		{80, LabelCritical, "red", "[CRITICAL]"},
		{100, LabelCritical, "red", "[CRITICAL]"},
	}
	for _, tc := range cases {
		label, color, badge := LevelForScore(tc.score)
		assert.Equal(t, tc.label, label, "score %d", tc.score)
		assert.Equal(t, tc.color, color, "score %d", tc.score)
		assert.Equal(t, tc.badge, badge, "score %d", tc.score)
	}
}

func TestContentHashTracksContent(t *testing.T) {
	a := &Email{ID: "1", From: "x@y.com", Subject: "s", Body: "b"}
	b := &Email{ID: "1", From: "x@y.com", Subject: "s", Body: "b"}
	c := &Email{ID: "1", From: "x@y.com", Subject: "s", Body: "changed"}

	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
}

func TestSenderHistoryAverages(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := &SenderHistory{
		EmailsReceived:    11,
		EmailsReplied:     4,
		TotalResponseTime: 8 * time.Hour,
		FirstSeen:         first,
		LastInteraction:   first.AddDate(0, 0, 10),
	}

	assert.InDelta(t, 4.0/11.0, h.ReplyRate(), 0.0001)
	assert.Equal(t, 2*time.Hour, h.AvgResponseTime())
	assert.Equal(t, 24*time.Hour, h.AvgInterval())

	empty := &SenderHistory{}
	assert.Equal(t, 0.0, empty.ReplyRate())
	assert.Equal(t, time.Duration(0), empty.AvgResponseTime())
	assert.Equal(t, time.Duration(0), empty.AvgInterval())
}

func TestExplanationRendering(t *testing.T) {
	r := &ScoreResult{
		TotalScore: 72,
		Label:      LabelHigh,
		Badge:      "[HIGH]",
		Confidence: 0.84,
		Breakdown: []ScoreComponent{
			{Name: "Sender Authority", Score: 25, Max: 25, Reason: "Registered vip contact"},
			{Name: "Deadline Urgency", Score: 20, Max: 25, Reason: "Due tomorrow"},
		},
	}

	out := r.Explanation()
	assert.Contains(t, out, "Priority Score: 72/100 (HIGH) [HIGH]")
	assert.Contains(t, out, "Sender Authority: 25/25")
	assert.Contains(t, out, "Due tomorrow")
	assert.Contains(t, out, "Overall Confidence: 84%")
}
