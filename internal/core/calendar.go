package core

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CalendarMax is the calendar-conflict component's share of the total score
const CalendarMax = 15

const (
	scoreCalendarConflict = 15
	scoreCalendarMention  = 10
)

// Scheduling vocabulary, kept distinct from the deadline scorer's patterns
var meetingWords = []string{
	"meeting", "call", "sync", "standup", "stand-up", "huddle",
	"one-on-one", "1:1", "catch up", "demo", "presentation",
	"interview", "workshop",
}

var schedulingWords = []string{
	"schedule", "reschedule", "availability", "are you free",
	"can we meet", "let's meet", "book a", "set up a",
}

var conferenceLinkHosts = []string{
	"zoom.us", "meet.google.com", "teams.microsoft.com", "webex.com",
}

var reTimeOfDay = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)

// CalendarScorer detects scheduling language and, when a calendar
// collaborator is available, checks the extracted window for conflicts
type CalendarScorer struct {
	checker CalendarChecker
	timeout time.Duration
	logger  *zap.Logger
}

// NewCalendarScorer creates a new calendar scorer. checker may be nil.
func NewCalendarScorer(checker CalendarChecker, timeout time.Duration, logger *zap.Logger) *CalendarScorer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CalendarScorer{
		checker: checker,
		timeout: timeout,
		logger:  logger,
	}
}

// Score computes the calendar-conflict component
func (s *CalendarScorer) Score(ctx context.Context, email *Email) ScoreComponent {
	text := strings.ToLower(email.Subject + "\n" + email.Body)

	trigger := schedulingTrigger(text)
	if trigger == "" {
		return ScoreComponent{
			Name:      "Calendar Conflict",
			Score:     0,
			Max:       CalendarMax,
			Reason:    "No scheduling language detected",
			Certainty: 1.0,
		}
	}

	if s.checker != nil {
		window := s.extractWindow(text, email.ReceivedAt)
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		conflict, err := s.checker.CheckConflict(callCtx, window)
		cancel()
		switch {
		case err != nil:
			s.logger.Warn("Calendar collaborator failed, scoring mention only",
				zap.Error(err))
		case conflict:
			return ScoreComponent{
				Name:      "Calendar Conflict",
				Score:     scoreCalendarConflict,
				Max:       CalendarMax,
				Reason:    fmt.Sprintf("Meeting (%s) conflicts with an existing commitment", trigger),
				Certainty: 1.0,
			}
		default:
			return ScoreComponent{
				Name:      "Calendar Conflict",
				Score:     scoreCalendarMention,
				Max:       CalendarMax,
				Reason:    fmt.Sprintf("Meeting/scheduling mention (%s), no conflict found", trigger),
				Certainty: 1.0,
			}
		}
	}

	return ScoreComponent{
		Name:      "Calendar Conflict",
		Score:     scoreCalendarMention,
		Max:       CalendarMax,
		Reason:    fmt.Sprintf("Meeting/scheduling mention (%s)", trigger),
		Certainty: 0.6,
	}
}

// schedulingTrigger returns the first matched scheduling signal, or ""
func schedulingTrigger(text string) string {
	for _, w := range meetingWords {
		if strings.Contains(text, w) {
			return w
		}
	}
	for _, w := range schedulingWords {
		if strings.Contains(text, w) {
			return w
		}
	}
	for _, h := range conferenceLinkHosts {
		if strings.Contains(text, h) {
			return "conference link"
		}
	}
	if reTimeOfDay.MatchString(text) {
		return "time-of-day mention"
	}
	return ""
}

// extractWindow builds a best-effort meeting window from a time-of-day
// expression, defaulting to a one-hour slot starting the next day when no
// concrete time is mentioned
func (s *CalendarScorer) extractWindow(text string, anchor time.Time) TimeWindow {
	if anchor.IsZero() {
		anchor = time.Now()
	}

	day := anchor
	if strings.Contains(text, "tomorrow") {
		day = anchor.AddDate(0, 0, 1)
	} else if m := reWeekday.FindStringSubmatch(text); m != nil {
		target := weekdayNames[m[1]]
		ahead := (int(target) - int(anchor.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		day = anchor.AddDate(0, 0, ahead)
	}

	hour := 9
	if m := reTimeOfDay.FindStringSubmatch(text); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil && h >= 1 && h <= 12 {
			if m[3] == "pm" && h != 12 {
				h += 12
			}
			if m[3] == "am" && h == 12 {
				h = 0
			}
			hour = h
		}
	} else {
		day = anchor.AddDate(0, 0, 1)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, anchor.Location())
	return TimeWindow{Start: start, End: start.Add(time.Hour)}
}
