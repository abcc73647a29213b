package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// AuthorityMax is the sender-authority component's share of the total score
const AuthorityMax = 25

// authorityScores maps a declared authority level to its component score
var authorityScores = map[AuthorityLevel]int{
	AuthorityVIP:       25,
	AuthorityManager:   20,
	AuthorityClient:    15,
	AuthorityRecruiter: 12,
	AuthorityNormal:    5,
}

// domainMatchWeight discounts domain-level registry matches against exact ones
const domainMatchWeight = 0.6

const authorityBaseline = 5

// titleKeyword is an inferred-title table entry; longer keywords are more
// specific and win ties
type titleKeyword struct {
	keyword string
	score   int
}

var titleKeywords = []titleKeyword{
	{"chief executive officer", 25},
	{"chief technology officer", 25},
	{"chief financial officer", 25},
	{"chief operating officer", 25},
	{"ceo", 25},
	{"cto", 25},
	{"cfo", 25},
	{"coo", 25},
	{"founder", 25},
	{"president", 24},
	{"vice president", 22},
	{"vp", 22},
	{"managing director", 22},
	{"director", 20},
	{"head of", 20},
	{"manager", 18},
	{"team lead", 15},
	{"lead", 14},
	{"recruiter", 12},
	{"talent acquisition", 12},
	{"hiring", 10},
}

// AuthorityScorer scores the sender's organizational importance by consulting
// the contact registry, falling back to title inference from the display name
// and signature when the sender is unregistered
type AuthorityScorer struct {
	registry ContactRegistry
	logger   *zap.Logger
}

// NewAuthorityScorer creates a new authority scorer
func NewAuthorityScorer(registry ContactRegistry, logger *zap.Logger) *AuthorityScorer {
	return &AuthorityScorer{
		registry: registry,
		logger:   logger,
	}
}

// Score computes the sender-authority component for an email. It never fails:
// registry unavailability degrades to title inference and then the baseline.
func (s *AuthorityScorer) Score(ctx context.Context, email *Email) ScoreComponent {
	sender := normalizeAddress(email.From)

	if s.registry != nil {
		// Exact-match lookup first
		if contact, err := s.registry.Lookup(ctx, sender); err == nil {
			score := authorityScores[contact.Level]
			if score == 0 {
				score = authorityBaseline
			}
			return ScoreComponent{
				Name:      "Sender Authority",
				Score:     score,
				Max:       AuthorityMax,
				Reason:    fmt.Sprintf("Registered %s contact (registry): %s", contact.Level, displayName(contact.Name, sender)),
				Certainty: 1.0,
			}
		} else if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("Contact registry lookup failed, falling back to inference",
				zap.String("sender", sender),
				zap.Error(err))
			return s.inferFromText(email, sender)
		}

		// Domain-level fallback at reduced weight
		if domain := emailDomain(sender); domain != "" {
			if contact, err := s.registry.Lookup(ctx, domain); err == nil {
				base := authorityScores[contact.Level]
				if base == 0 {
					base = authorityBaseline
				}
				score := int(math.Round(float64(base) * domainMatchWeight))
				return ScoreComponent{
					Name:      "Sender Authority",
					Score:     score,
					Max:       AuthorityMax,
					Reason:    fmt.Sprintf("Domain registered as %s (domain): %s", contact.Level, domain),
					Certainty: 1.0,
				}
			} else if !errors.Is(err, ErrNotFound) {
				return s.inferFromText(email, sender)
			}
		}
	}

	return s.inferFromText(email, sender)
}

// inferFromText scans the display name and signature-like trailing body lines
// for title keywords, taking the single best match
func (s *AuthorityScorer) inferFromText(email *Email, sender string) ScoreComponent {
	text := strings.ToLower(email.FromName + "\n" + extractSignature(email.Body))
	words := titleTokens(text)

	bestScore := 0
	bestKeyword := ""
	for _, tk := range titleKeywords {
		if !matchesTitleKeyword(text, words, tk.keyword) {
			continue
		}
		// Higher score wins; on equal score the more specific (longer)
		// keyword wins, so "chief executive officer" beats "manager"
		if tk.score > bestScore || (tk.score == bestScore && len(tk.keyword) > len(bestKeyword)) {
			bestScore = tk.score
			bestKeyword = tk.keyword
		}
	}

	if bestScore > 0 {
		return ScoreComponent{
			Name:      "Sender Authority",
			Score:     bestScore,
			Max:       AuthorityMax,
			Reason:    fmt.Sprintf("Title hint %q (inferred): %s", bestKeyword, displayName(email.FromName, sender)),
			Certainty: 0.6,
		}
	}

	return ScoreComponent{
		Name:      "Sender Authority",
		Score:     authorityBaseline,
		Max:       AuthorityMax,
		Reason:    "New or unclassified sender (baseline)",
		Certainty: 0.6,
	}
}

// titleTokens splits lowercased text into word tokens so short acronym
// keywords cannot match inside larger words ("coo" in "coordinator")
func titleTokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchesTitleKeyword matches single-word keywords against whole tokens and
// multi-word phrases as substrings
func matchesTitleKeyword(text string, words []string, keyword string) bool {
	if strings.ContainsRune(keyword, ' ') {
		return strings.Contains(text, keyword)
	}
	for _, w := range words {
		if w == keyword {
			return true
		}
	}
	return false
}

// extractSignature returns the signature block of a body: everything from a
// conventional sign-off marker onward, or the trailing lines when no marker
// is present
func extractSignature(body string) string {
	lines := strings.Split(body, "\n")
	markers := []string{"--", "regards", "best,", "best regards", "thanks,", "sincerely", "cheers"}

	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		for _, m := range markers {
			if trimmed == m || strings.HasPrefix(trimmed, m) {
				return strings.Join(lines[i:], "\n")
			}
		}
	}

	if len(lines) > 5 {
		return strings.Join(lines[len(lines)-5:], "\n")
	}
	return ""
}

func emailDomain(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}
