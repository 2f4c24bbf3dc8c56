package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item is one prompt to generate. Material, when set, replaces the material
// of the generated design before export. Name overrides the output filename.
type Item struct {
	Index    int
	Prompt   string
	Material string
	Name     string
}

type fileItem struct {
	Prompt   string `json:"prompt" yaml:"prompt"`
	Material string `json:"material,omitempty" yaml:"material,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
}

func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSON(file)
	case ".yaml", ".yml":
		return ParseYAML(file)
	case ".txt", "":
		return ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt, .json or .yaml", ext)
	}
}

// ParseText reads one prompt per line. Blank lines and lines starting with
// # are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		index++
		items = append(items, Item{
			Index:  index,
			Prompt: line,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no prompts found in file")
	}

	return items, nil
}

func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw []fileItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return toItems(raw)
}

func ParseYAML(r io.Reader) ([]Item, error) {
	var raw []fileItem
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no prompts found in file")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return toItems(raw)
}

func toItems(raw []fileItem) ([]Item, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no prompts found in file")
	}

	items := make([]Item, len(raw))
	for i, fi := range raw {
		prompt := strings.TrimSpace(fi.Prompt)
		if prompt == "" {
			return nil, fmt.Errorf("item %d has empty prompt", i+1)
		}
		items[i] = Item{
			Index:    i + 1,
			Prompt:   prompt,
			Material: strings.TrimSpace(fi.Material),
			Name:     strings.TrimSpace(fi.Name),
		}
	}

	return items, nil
}
