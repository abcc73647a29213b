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

// DeadlineMax is the deadline-urgency component's share of the total score
const DeadlineMax = 25

const deadlineBaseline = 5

// Score bands by proximity of the earliest resolved deadline
const (
	scoreDueToday    = 25
	scoreDueTomorrow = 20
	scoreDueThisWeek = 12
	scoreStale       = 3
)

// urgencyTokens score the full band when present regardless of any date
var urgencyTokens = []string{
	"asap",
	"as soon as possible",
	"urgent",
	"immediately",
	"emergency",
	"right away",
	"end of day",
	"eod",
}

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	reWeekday    = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reInDays     = regexp.MustCompile(`\b(?:in|within)\s+(\d{1,3})\s+days?\b`)
	reInHours    = regexp.MustCompile(`\b(?:in|within)\s+(\d{1,3})\s+hours?\b`)
	reMonthDay   = regexp.MustCompile(`\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	reDayMonth   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\b`)
	reNumericUS  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	reNumericISO = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// DeadlineScorer extracts temporal and urgency expressions from subject and
// body, resolving relative terms against the email's received time
type DeadlineScorer struct {
	logger *zap.Logger
}

// NewDeadlineScorer creates a new deadline scorer
func NewDeadlineScorer(logger *zap.Logger) *DeadlineScorer {
	return &DeadlineScorer{logger: logger}
}

// Score computes the deadline-urgency component. The earliest resolved date
// governs the band; an urgency token and a resolved date take the higher of
// their individual scores rather than a sum.
func (s *DeadlineScorer) Score(ctx context.Context, email *Email) ScoreComponent {
	text := strings.ToLower(email.Subject + "\n" + email.Body)
	anchor := email.ReceivedAt
	if anchor.IsZero() {
		anchor = time.Now()
	}

	token := matchUrgencyToken(text)
	deadline, hasDeadline := s.earliestDeadline(text, anchor)

	dateScore := 0
	dateReason := ""
	if hasDeadline {
		days := calendarDays(anchor, deadline)
		switch {
		case days < 0:
			dateScore = scoreStale
			dateReason = fmt.Sprintf("Referenced date %s already passed (stale reference, low residual urgency)", deadline.Format("Jan 2"))
		case days == 0:
			dateScore = scoreDueToday
			dateReason = "Due today"
		case days == 1:
			dateScore = scoreDueTomorrow
			dateReason = "Due tomorrow"
		case days <= 7:
			dateScore = scoreDueThisWeek
			dateReason = fmt.Sprintf("Due within %d days", days)
		default:
			dateScore = deadlineBaseline
			dateReason = fmt.Sprintf("Due in %d days, no near-term pressure", days)
		}
	}

	switch {
	case token != "" && hasDeadline:
		// Higher of the two, never a sum, to avoid double-counting
		if dateScore >= scoreDueToday {
			return deadlineComponent(dateScore, dateReason, 1.0)
		}
		return deadlineComponent(scoreDueToday, fmt.Sprintf("Urgency token %q present", token), 1.0)
	case token != "":
		return deadlineComponent(scoreDueToday, fmt.Sprintf("Urgency token %q present", token), 1.0)
	case hasDeadline:
		return deadlineComponent(dateScore, dateReason, 1.0)
	default:
		return deadlineComponent(deadlineBaseline, "No deadline or urgency signal found (baseline)", 0.6)
	}
}

func deadlineComponent(score int, reason string, certainty float64) ScoreComponent {
	return ScoreComponent{
		Name:      "Deadline Urgency",
		Score:     score,
		Max:       DeadlineMax,
		Reason:    reason,
		Certainty: certainty,
	}
}

func matchUrgencyToken(text string) string {
	for _, token := range urgencyTokens {
		if strings.Contains(text, token) {
			return token
		}
	}
	return ""
}

// earliestDeadline runs the ordered pattern set and returns the earliest
// resolved date. Expressions that fail to resolve are treated as absent.
func (s *DeadlineScorer) earliestDeadline(text string, anchor time.Time) (time.Time, bool) {
	var dates []time.Time

	if strings.Contains(text, "today") || strings.Contains(text, "tonight") {
		dates = append(dates, anchor)
	}
	if strings.Contains(text, "tomorrow") || strings.Contains(text, "tmrw") {
		dates = append(dates, anchor.AddDate(0, 0, 1))
	}
	if strings.Contains(text, "next week") {
		dates = append(dates, anchor.AddDate(0, 0, 7))
	} else if strings.Contains(text, "this week") {
		dates = append(dates, anchor.AddDate(0, 0, 5))
	}

	if m := reWeekday.FindStringSubmatch(text); m != nil {
		target := weekdayNames[m[1]]
		ahead := (int(target) - int(anchor.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		dates = append(dates, anchor.AddDate(0, 0, ahead))
	}

	if m := reInDays.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			dates = append(dates, anchor.AddDate(0, 0, n))
		}
	}
	if m := reInHours.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			dates = append(dates, anchor.Add(time.Duration(n)*time.Hour))
		}
	}

	if m := reMonthDay.FindStringSubmatch(text); m != nil {
		if d, ok := resolveMonthDay(m[1], m[2], m[3], anchor); ok {
			dates = append(dates, d)
		}
	}
	if m := reDayMonth.FindStringSubmatch(text); m != nil {
		if d, ok := resolveMonthDay(m[2], m[1], "", anchor); ok {
			dates = append(dates, d)
		}
	}
	if m := reNumericISO.FindStringSubmatch(text); m != nil {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			dates = append(dates, d)
		}
	}
	if m := reNumericUS.FindStringSubmatch(text); m != nil {
		year := m[3]
		if year == "" {
			year = strconv.Itoa(anchor.Year())
		} else if len(year) == 2 {
			year = "20" + year
		}
		if d, ok := makeDate(year, m[1], m[2]); ok {
			dates = append(dates, d)
		}
	}

	if len(dates) == 0 {
		return time.Time{}, false
	}

	earliest := dates[0]
	for _, d := range dates[1:] {
		if d.Before(earliest) {
			earliest = d
		}
	}
	return earliest, true
}

// resolveMonthDay builds a date from a month name and day, defaulting to the
// anchor's year when none is given. Malformed combinations resolve to false.
func resolveMonthDay(monthName, dayStr, yearStr string, anchor time.Time) (time.Time, bool) {
	month, ok := monthNames[strings.TrimSuffix(strings.ToLower(monthName), ".")]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	year := anchor.Year()
	if yearStr != "" {
		if y, err := strconv.Atoi(yearStr); err == nil {
			year = y
		}
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, anchor.Location())
	if d.Month() != month || d.Day() != day {
		// Normalized away, e.g. "Feb 30"
		return time.Time{}, false
	}
	return d, true
}

func makeDate(yearStr, monthStr, dayStr string) (time.Time, bool) {
	year, err1 := strconv.Atoi(yearStr)
	month, err2 := strconv.Atoi(monthStr)
	day, err3 := strconv.Atoi(dayStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// calendarDays returns whole calendar days from anchor's date to due's date
func calendarDays(anchor, due time.Time) int {
	a := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
