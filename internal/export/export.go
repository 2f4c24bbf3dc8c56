// Package export writes designs to disk as JSON or YAML documents.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/manash/designgen/internal/security"
	"github.com/manash/designgen/pkg/models"
)

type Format string

const (
	FormatJSON Format = "json"
	// FormatYAML writes the fixture form of a design, which can be pasted
	// into a catalog file.
	FormatYAML Format = "yaml"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrNoDesign      = errors.New("no design to export")
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks a format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func Encode(d *models.Design, format Format) ([]byte, error) {
	if d == nil {
		return nil, ErrNoDesign
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(map[string]*models.Design{d.Type.String(): d})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type Exporter struct {
	// AllowAbsolute permits absolute paths in Save; relative paths are
	// always checked for traversal and reserved names.
	AllowAbsolute bool

	now func() time.Time
}

func New() *Exporter {
	return &Exporter{now: time.Now}
}

// Save writes d to path in the format implied by its extension.
func (e *Exporter) Save(d *models.Design, path string) error {
	if !(e.AllowAbsolute && filepath.IsAbs(path)) {
		if err := security.ValidateExportPath(path); err != nil {
			return fmt.Errorf("invalid export path %q: %w", path, err)
		}
	}
	return write(d, path, FormatFromPath(path))
}

// SaveInDir writes d into dir under a generated filename and returns the
// full path.
func (e *Exporter) SaveInDir(d *models.Design, dir string, format Format) (string, error) {
	if d == nil {
		return "", ErrNoDesign
	}
	name := Filename(d, format, e.now())
	if err := security.ValidateExportPath(name); err != nil {
		return "", fmt.Errorf("invalid export filename %q: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := write(d, path, format); err != nil {
		return "", err
	}
	return path, nil
}

// Filename builds "<prompt-slug>-<id>.<ext>", using a timestamp when the
// design has no id.
func Filename(d *models.Design, format Format, t time.Time) string {
	stem := security.Slug(d.Prompt)
	if d.Prompt == "" {
		stem = security.SanitizeFilename(d.Type.String())
	}

	suffix := t.Format("20060102-150405")
	if d.ID != 0 {
		suffix = strconv.FormatInt(d.ID, 10)
	}
	return fmt.Sprintf("%s-%s.%s", stem, suffix, format)
}

func write(d *models.Design, path string, format Format) error {
	data, err := Encode(d, format)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
