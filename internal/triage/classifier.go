package triage

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-triage/internal/domain"
)

// Identifiers reported in ModelInfo for the rule-based engine.
const (
	ModelProvider      = "stub"
	ModelName          = "deterministic-v1"
	ModelPromptVersion = "1.0"
)

const (
	baseConfidence = 0.4
	maxConfidence  = 0.95
	densityWeight  = 2.0

	// No-match confidence, in hundredths: [30, 60).
	fallbackCents = 30
	spreadCents   = 30
)

type categoryKeywords struct {
	category domain.Category
	keywords []string
}

// Declaration order breaks ties between equal match counts.
var defaultKeywords = []categoryKeywords{
	{domain.CategoryBilling, []string{"refund", "invoice", "payment", "charge", "bill", "subscription", "pricing", "cost"}},
	{domain.CategoryTech, []string{"error", "bug", "crash", "login", "password", "broken", "not working", "500", "404", "stack trace"}},
	{domain.CategoryShipping, []string{"delivery", "shipment", "package", "tracking", "delayed", "shipping", "order", "address"}},
}

// Classification is the ephemeral output of the classify stage.
type Classification struct {
	Category   domain.Category
	Confidence float64
	MatchCount int
	ModelInfo  domain.ModelInfo
}

// KeywordClassifier maps ticket text to a category by keyword counting.
// It is safe for concurrent use.
type KeywordClassifier struct {
	keywords []categoryKeywords
	random   func() float64
	now      func() time.Time
}

// ClassifierOption customizes a KeywordClassifier.
type ClassifierOption func(*KeywordClassifier)

// WithRandom replaces the source used for the no-match confidence. fn must
// return values in [0,1) and be safe for concurrent use.
func WithRandom(fn func() float64) ClassifierOption {
	return func(c *KeywordClassifier) { c.random = fn }
}

// WithClassifierClock replaces the clock used for latency measurement.
func WithClassifierClock(now func() time.Time) ClassifierOption {
	return func(c *KeywordClassifier) { c.now = now }
}

// NewKeywordClassifier builds a classifier with the built-in keyword table.
func NewKeywordClassifier(opts ...ClassifierOption) *KeywordClassifier {
	c := &KeywordClassifier{
		keywords: defaultKeywords,
		random:   rand.Float64,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never fails on content; it only returns ctx errors.
func (c *KeywordClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	if err := ctx.Err(); err != nil {
		return Classification{}, err
	}
	start := c.now()
	category, matches := c.bestCategory(text)
	return Classification{
		Category:   category,
		Confidence: c.confidence(text, matches),
		MatchCount: matches,
		ModelInfo: domain.ModelInfo{
			Provider:      ModelProvider,
			Model:         ModelName,
			PromptVersion: ModelPromptVersion,
			LatencyMs:     c.now().Sub(start).Milliseconds(),
		},
	}, nil
}

func (c *KeywordClassifier) bestCategory(text string) (domain.Category, int) {
	lower := strings.ToLower(text)
	best, bestCount := domain.CategoryOther, 0
	for _, entry := range c.keywords {
		count := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = entry.category, count
		}
	}
	return best, bestCount
}

func (c *KeywordClassifier) confidence(text string, matches int) float64 {
	if matches == 0 {
		cents := int(c.random() * spreadCents)
		cents = min(max(cents, 0), spreadCents-1)
		return float64(fallbackCents+cents) / 100
	}
	words := len(strings.Fields(text))
	if words < 1 {
		words = 1
	}
	v := math.Min(maxConfidence, baseConfidence+(float64(matches)/float64(words))*densityWeight)
	return math.Round(v*100) / 100
}
