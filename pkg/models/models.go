package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxPromptLength = 500

var (
	ErrEmptyPrompt   = errors.New("prompt cannot be empty")
	ErrPromptTooLong = errors.New("prompt exceeds maximum length")
	ErrInvalidTheme  = errors.New("invalid theme")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrNoDesignID    = errors.New("design id is required")
)

type Category string

const (
	CategoryChair     Category = "chair"
	CategoryTable     Category = "table"
	CategoryLamp      Category = "lamp"
	CategoryFurniture Category = "furniture"
)

// DefaultCategory must be present in every fixture catalog. It backs the
// evaluate and iterate suggestions and stands in for categories a catalog
// lacks.
const DefaultCategory = CategoryChair

// FallbackCategory is chosen when no keyword rule matches a prompt.
const FallbackCategory = CategoryFurniture

func Categories() []Category {
	return []Category{CategoryChair, CategoryTable, CategoryLamp, CategoryFurniture}
}

func (c Category) IsValid() bool {
	return slices.Contains(Categories(), c)
}

func (c Category) String() string {
	return string(c)
}

type Vec3 [3]float64

type Dimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Depth  float64 `json:"depth" yaml:"depth"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%gx%gx%g", d.Width, d.Height, d.Depth)
}

type Component struct {
	Name     string `json:"name" yaml:"name"`
	Shape    string `json:"shape" yaml:"shape"`
	Position Vec3   `json:"position" yaml:"position"`
	Size     Vec3   `json:"size" yaml:"size"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
}

type Colors struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary" yaml:"secondary"`
	Accent    string `json:"accent,omitempty" yaml:"accent,omitempty"`
}

// Design is the furniture description returned by the backend.
type Design struct {
	ID           int64       `json:"id,omitempty" yaml:"-"`
	Prompt       string      `json:"prompt,omitempty" yaml:"-"`
	Type         Category    `json:"type" yaml:"type"`
	Style        string      `json:"style" yaml:"style"`
	Material     string      `json:"material" yaml:"material"`
	Dimensions   Dimensions  `json:"dimensions" yaml:"dimensions"`
	Components   []Component `json:"components" yaml:"components"`
	Colors       Colors      `json:"colors" yaml:"colors"`
	Iteration    int         `json:"iteration,omitempty" yaml:"-"`
	Improvements []string    `json:"improvements,omitempty" yaml:"-"`
}

// Clone returns a deep copy so fixtures are never mutated through a response.
func (d *Design) Clone() *Design {
	if d == nil {
		return nil
	}
	c := *d
	if d.Components != nil {
		c.Components = make([]Component, len(d.Components))
		copy(c.Components, d.Components)
	}
	if d.Improvements != nil {
		c.Improvements = make([]string, len(d.Improvements))
		copy(c.Improvements, d.Improvements)
	}
	return &c
}

func ValidatePrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return ErrEmptyPrompt
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxPromptLength {
		return fmt.Errorf("%w: %d > %d characters", ErrPromptTooLong, n, MaxPromptLength)
	}
	return nil
}

func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	return nil
}

// SavedDesign is a client-side record of a design the user chose to keep.
type SavedDesign struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Spec      *Design   `json:"spec"`
	Timestamp time.Time `json:"timestamp"`
}

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

const DefaultTheme = ThemeDark

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeDark, ThemeLight:
		return t, nil
	default:
		return "", fmt.Errorf("%w %q: must be %s or %s", ErrInvalidTheme, s, ThemeDark, ThemeLight)
	}
}

func (t Theme) String() string {
	return string(t)
}
