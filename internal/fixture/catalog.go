package fixture

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/manash/designgen/pkg/models"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrMissingDefault  = errors.New("catalog has no default fixture")
)

// Catalog maps each category to its canned design. Get always hands out a
// copy.
type Catalog struct {
	fixtures map[models.Category]*models.Design
}

func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultFixtures)
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var raw map[models.Category]*models.Design
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	fixtures := make(map[models.Category]*models.Design, len(raw))
	for cat, design := range raw {
		if !cat.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
		}
		if design == nil {
			return nil, fmt.Errorf("fixture %q is empty", cat)
		}
		if design.Type == "" {
			design.Type = cat
		}
		fixtures[cat] = design
	}

	if _, ok := fixtures[models.DefaultCategory]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingDefault, models.DefaultCategory)
	}

	return &Catalog{fixtures: fixtures}, nil
}

func (c *Catalog) Get(cat models.Category) (*models.Design, bool) {
	d, ok := c.fixtures[cat]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Default returns a copy of the default category fixture.
func (c *Catalog) Default() *models.Design {
	return c.fixtures[models.DefaultCategory].Clone()
}

func (c *Catalog) Categories() []models.Category {
	cats := make([]models.Category, 0, len(c.fixtures))
	for cat := range c.fixtures {
		cats = append(cats, cat)
	}
	slices.Sort(cats)
	return cats
}

// StubAssets is the static placeholder asset list.
func StubAssets() []models.Asset {
	return []models.Asset{
		{Type: "model", URL: "/models/chair.glb"},
		{Type: "texture", URL: "/textures/wood.jpg"},
	}
}
