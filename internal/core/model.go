package core

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// Email represents an email message to be scored
type Email struct {
	ID         string
	From       string
	FromName   string
	To         []string
	Subject    string
	Body       string
	Headers    map[string][]string
	ReceivedAt time.Time
}

// ContentHash returns a hash of the fields the scorers read, used as part
// of the score-cache key so a changed message never serves a stale result
func (e *Email) ContentHash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(e.From))
	h.Write([]byte{0})
	h.Write([]byte(e.FromName))
	h.Write([]byte{0})
	h.Write([]byte(e.Subject))
	h.Write([]byte{0})
	h.Write([]byte(e.Body))
	h.Write([]byte{0})
	h.Write([]byte(e.ReceivedAt.UTC().Format(time.RFC3339)))
	return h.Sum64()
}

// AuthorityLevel is a sender's declared organizational importance
type AuthorityLevel string

const (
	AuthorityVIP       AuthorityLevel = "vip"
	AuthorityManager   AuthorityLevel = "manager"
	AuthorityClient    AuthorityLevel = "client"
	AuthorityRecruiter AuthorityLevel = "recruiter"
	AuthorityNormal    AuthorityLevel = "normal"
)

// Contact represents a registry entry for a sender or a whole domain
type Contact struct {
	// Key is an exact email address or a bare domain used as a fallback
	Key   string
	Name  string
	Level AuthorityLevel
	// Title is a free-text hint such as "VP of Engineering"
	Title string
}

// SenderHistory aggregates interaction statistics for one sender
type SenderHistory struct {
	SenderEmail       string
	EmailsReceived    int64
	EmailsReplied     int64
	TotalResponseTime time.Duration
	FirstSeen         time.Time
	LastInteraction   time.Time
	// Version supports optimistic concurrency in SQL-backed stores
	Version int64
}

// ReplyRate returns replied/received, or 0 when nothing was received yet
// (meaning "unknown", not "never replies")
func (h *SenderHistory) ReplyRate() float64 {
	if h.EmailsReceived == 0 {
		return 0
	}
	return float64(h.EmailsReplied) / float64(h.EmailsReceived)
}

// AvgResponseTime returns the mean time taken to reply, or 0 with no replies
func (h *SenderHistory) AvgResponseTime() time.Duration {
	if h.EmailsReplied == 0 {
		return 0
	}
	return h.TotalResponseTime / time.Duration(h.EmailsReplied)
}

// AvgInterval returns the sender's typical gap between emails, or 0 when
// fewer than two emails have been seen
func (h *SenderHistory) AvgInterval() time.Duration {
	if h.EmailsReceived < 2 || h.LastInteraction.IsZero() || h.FirstSeen.IsZero() {
		return 0
	}
	span := h.LastInteraction.Sub(h.FirstSeen)
	if span <= 0 {
		return 0
	}
	return span / time.Duration(h.EmailsReceived-1)
}

// PriorityLabel classifies a total score into one of five fixed bands
type PriorityLabel string

const (
	LabelCritical PriorityLabel = "critical"
	LabelHigh     PriorityLabel = "high"
	LabelMedium   PriorityLabel = "medium"
	LabelLow      PriorityLabel = "low"
	LabelMinimal  PriorityLabel = "minimal"
)

type priorityLevel struct {
	min   int
	label PriorityLabel
	color string
	badge string
}

// Ordered highest band first; LevelForScore takes the first matching band
var priorityLevels = []priorityLevel{
	{80, LabelCritical, "red", "[CRITICAL]"},
	{60, LabelHigh, "orange", "[HIGH]"},
	{40, LabelMedium, "yellow", "[MEDIUM]"},
	{20, LabelLow, "green", "[LOW]"},
	{0, LabelMinimal, "gray", "[MIN]"},
}

// LevelForScore maps a total score to its label, color and badge
func LevelForScore(score int) (PriorityLabel, string, string) {
	for _, l := range priorityLevels {
		if score >= l.min {
			return l.label, l.color, l.badge
		}
	}
	last := priorityLevels[len(priorityLevels)-1]
	return last.label, last.color, last.badge
}

// ScoreComponent is one sub-scorer's contribution with its explanation
type ScoreComponent struct {
	Name   string
	Score  int
	Max    int
	Reason string
	// Certainty is 1.0 for primary-path results and 0.6 for fallback or
	// inferred results; the aggregate confidence averages these
	Certainty float64
}

// ScoreResult is the complete priority assessment for one email
type ScoreResult struct {
	EmailID    string
	ScoringID  string
	TotalScore int
	Label      PriorityLabel
	Color      string
	Badge      string
	Confidence float64
	// Breakdown preserves sub-scorer order: authority, deadline, tone,
	// history, calendar. May be empty on the terse scoring path.
	Breakdown []ScoreComponent
	ScoredAt  time.Time
}

// Explanation renders the breakdown as a human-readable block
func (r *ScoreResult) Explanation() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Priority Score: %d/100 (%s) %s\n", r.TotalScore, strings.ToUpper(string(r.Label)), r.Badge)
	if len(r.Breakdown) > 0 {
		b.WriteString("\nScore Breakdown:\n")
		for _, c := range r.Breakdown {
			fmt.Fprintf(&b, "- %s: %d/%d\n    %s\n", c.Name, c.Score, c.Max, c.Reason)
		}
	}
	fmt.Fprintf(&b, "\nOverall Confidence: %.0f%%", r.Confidence*100)
	return b.String()
}

// BatchResult holds per-email results keyed by email ID
type BatchResult struct {
	Results     map[string]*ScoreResult
	TotalEmails int
	AvgScore    float64
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
