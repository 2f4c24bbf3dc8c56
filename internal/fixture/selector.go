// Package fixture implements the keyword-driven fixture selection used by the
// mock backend in place of a real generative model.
package fixture

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/manash/designgen/pkg/models"
)

const defaultIterationPrompt = "Improved version based on feedback"

// Rule maps a keyword to a category. Rules are evaluated in order and the
// first keyword contained in the prompt wins.
type Rule struct {
	Keyword  string
	Category models.Category
}

func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "chair", Category: models.CategoryChair},
		{Keyword: "table", Category: models.CategoryTable},
		{Keyword: "lamp", Category: models.CategoryLamp},
		{Keyword: "light", Category: models.CategoryLamp},
	}
}

type Selector struct {
	catalog *Catalog
	rules   []Rule
	ids     *IDSource
}

func NewSelector(catalog *Catalog, rules []Rule, ids *IDSource) *Selector {
	if rules == nil {
		rules = DefaultRules()
	}
	if ids == nil {
		ids = NewIDSource(time.Now)
	}
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		normalized[i] = Rule{Keyword: strings.ToLower(r.Keyword), Category: r.Category}
	}
	return &Selector{
		catalog: catalog,
		rules:   normalized,
		ids:     ids,
	}
}

func (s *Selector) Classify(prompt string) models.Category {
	lower := strings.ToLower(prompt)
	for _, r := range s.rules {
		if r.Keyword != "" && strings.Contains(lower, r.Keyword) {
			return r.Category
		}
	}
	return models.FallbackCategory
}

// Select returns a stamped copy of the fixture for the prompt's category.
func (s *Selector) Select(prompt string) (*models.Design, error) {
	if err := models.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	design, ok := s.catalog.Get(s.Classify(prompt))
	if !ok {
		design = s.catalog.Default()
	}
	design.ID = s.ids.Next()
	design.Prompt = prompt
	return design, nil
}

// NextIteration is the suggestion attached to an evaluation acknowledgement.
func (s *Selector) NextIteration() *models.Design {
	design := s.catalog.Default()
	design.ID = s.ids.Next()
	design.Iteration = 2
	design.Improvements = []string{"Enhanced ergonomics", "Better material choice", "Refined aesthetics"}
	return design
}

func (s *Selector) Iteration(feedback string) *models.Design {
	design := s.catalog.Default()
	design.ID = s.ids.Next()
	design.Iteration = 3
	design.Prompt = feedback
	if strings.TrimSpace(feedback) == "" {
		design.Prompt = defaultIterationPrompt
	}
	design.Improvements = []string{"User feedback incorporated", "Design optimized", "Quality enhanced"}
	return design
}

// IDSource hands out millisecond timestamps, bumped forward when two calls
// land in the same millisecond so identifiers never repeat.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDSource(now func() time.Time) *IDSource {
	return &IDSource{now: now}
}

func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Latency is the artificial processing delay range, [Min, Max).
type Latency struct {
	Min time.Duration
	Max time.Duration
}

func DefaultLatency() Latency {
	return Latency{Min: time.Second, Max: 3 * time.Second}
}

func (l Latency) Draw() time.Duration {
	if l.Max <= l.Min {
		return max(l.Min, 0)
	}
	return l.Min + rand.N(l.Max-l.Min)
}

func (l Latency) Wait(ctx context.Context) error {
	d := l.Draw()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
