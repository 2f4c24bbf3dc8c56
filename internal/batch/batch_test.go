package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/manash/designgen/internal/export"
	"github.com/manash/designgen/internal/fixture"
	"github.com/manash/designgen/internal/preview"
	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/internal/provider/local"
	"github.com/manash/designgen/pkg/models"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"basic prompts", "a chair\na table\na lamp", 3, false},
		{"with empty lines", "a chair\n\n  \na table\n\n", 2, false},
		{"with comments", "# furniture\na chair\n# more\na table", 2, false},
		{"empty file", "", 0, true},
		{"only comments", "# comment\n# another", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseText(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(items) != tt.want {
				t.Errorf("ParseText() got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"basic array", `[{"prompt": "a chair"}, {"prompt": "a table"}]`, 2, false},
		{"with options", `[{"prompt": "a lamp", "material": "brass", "name": "hall-lamp"}]`, 1, false},
		{"empty array", `[]`, 0, true},
		{"empty prompt", `[{"prompt": "  "}]`, 0, true},
		{"invalid json", `[{"prompt": "one"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseJSON(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && len(items) != tt.want {
				t.Errorf("ParseJSON() got %d items, want %d", len(items), tt.want)
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	input := `
- prompt: a dining table
  material: oak
- prompt: desk lamp
  name: study-lamp
`
	items, err := ParseYAML(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ParseYAML() got %d items, want 2", len(items))
	}
	if items[0].Material != "oak" || items[1].Name != "study-lamp" || items[1].Index != 2 {
		t.Errorf("ParseYAML() = %+v", items)
	}

	if _, err := ParseYAML(strings.NewReader("")); err == nil {
		t.Error("ParseYAML(empty) expected error")
	}
	if _, err := ParseYAML(strings.NewReader("prompt: [unclosed")); err == nil {
		t.Error("ParseYAML(invalid) expected error")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"prompts.txt":  "a chair\na table",
		"prompts.json": `[{"prompt": "a chair"}, {"prompt": "a table"}]`,
		"prompts.yaml": "- prompt: a chair\n- prompt: a table\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		items, err := ParseFile(path)
		if err != nil {
			t.Errorf("ParseFile(%s) error = %v", name, err)
			continue
		}
		if len(items) != 2 {
			t.Errorf("ParseFile(%s) got %d items, want 2", name, len(items))
		}
	}

	csv := filepath.Join(dir, "prompts.csv")
	os.WriteFile(csv, []byte("a,b"), 0644)
	if _, err := ParseFile(csv); err == nil {
		t.Error("ParseFile(.csv) expected error")
	}
	if _, err := ParseFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("ParseFile(missing) expected error")
	}
}

func newBackend(t *testing.T) provider.Backend {
	t.Helper()
	catalog, err := fixture.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	return local.New(fixture.NewSelector(catalog, nil, nil), preview.NewTracker(preview.Options{}), fixture.Latency{})
}

func newProcessor(t *testing.T, backend provider.Backend) (*Processor, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	exporter := export.New()
	exporter.AllowAbsolute = true
	var out, errOut bytes.Buffer
	return NewProcessor(backend, exporter, &out, &errOut), &out, &errOut
}

func TestProcessorProcess(t *testing.T) {
	for _, parallel := range []int{1, 3} {
		t.Run(map[int]string{1: "sequential", 3: "parallel"}[parallel], func(t *testing.T) {
			p, out, _ := newProcessor(t, newBackend(t))
			dir := t.TempDir()

			items := []Item{
				{Index: 1, Prompt: "A modern wooden dining table"},
				{Index: 2, Prompt: "desk lamp", Material: "brass"},
				{Index: 3, Prompt: "something comfy", Name: "comfy"},
			}
			results, err := p.Process(context.Background(), items, &Options{OutputDir: dir, Parallel: parallel})
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}

			wantTypes := []models.Category{models.CategoryTable, models.CategoryLamp, models.CategoryFurniture}
			for i, r := range results {
				if r.Error != nil {
					t.Errorf("result %d error = %v", i, r.Error)
					continue
				}
				if r.Type != wantTypes[i] {
					t.Errorf("result %d type = %q, want %q", i, r.Type, wantTypes[i])
				}
				if _, err := os.Stat(r.Path); err != nil {
					t.Errorf("result %d file missing: %v", i, err)
				}
			}

			if want := filepath.Join(dir, "001-a-modern-wooden-dining-table.json"); results[0].Path != want {
				t.Errorf("path = %q, want %q", results[0].Path, want)
			}
			if want := filepath.Join(dir, "comfy.json"); results[2].Path != want {
				t.Errorf("named path = %q, want %q", results[2].Path, want)
			}

			data, _ := os.ReadFile(results[1].Path)
			if !strings.Contains(string(data), `"material": "brass"`) {
				t.Errorf("material override not exported:\n%s", data)
			}
			if !strings.Contains(out.String(), "[3/3]") {
				t.Errorf("progress output missing:\n%s", out.String())
			}
		})
	}
}

func TestProcessorYAMLFormat(t *testing.T) {
	p, _, _ := newProcessor(t, newBackend(t))
	dir := t.TempDir()

	results, err := p.Process(context.Background(), []Item{{Index: 1, Prompt: "lamp"}}, &Options{OutputDir: dir, Format: export.FormatYAML})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if filepath.Ext(results[0].Path) != ".yaml" {
		t.Errorf("path = %q, want .yaml", results[0].Path)
	}
}

// failingBackend fails Generate for prompts containing "fail".
type failingBackend struct {
	provider.Backend
	calls atomic.Int32
}

func (b *failingBackend) Generate(ctx context.Context, prompt string) (*models.GeneratedDesign, error) {
	b.calls.Add(1)
	if strings.Contains(prompt, "fail") {
		return nil, &provider.StatusError{Code: 500, Message: "boom"}
	}
	return b.Backend.Generate(ctx, prompt)
}

func TestProcessorWithErrors(t *testing.T) {
	backend := &failingBackend{Backend: newBackend(t)}
	p, out, errOut := newProcessor(t, backend)

	items := []Item{
		{Index: 1, Prompt: "chair"},
		{Index: 2, Prompt: "please fail"},
		{Index: 3, Prompt: "table"},
	}
	results, err := p.Process(context.Background(), items, &Options{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if results[1].Error == nil || !errors.Is(results[1].Error, provider.ErrBadStatus) {
		t.Errorf("result 2 error = %v, want ErrBadStatus", results[1].Error)
	}
	if results[2].Error != nil {
		t.Errorf("result 3 should succeed after a failure: %v", results[2].Error)
	}
	if !strings.Contains(errOut.String(), "generation failed") {
		t.Errorf("error output = %q", errOut.String())
	}

	p.PrintSummary(results)
	summary := out.String()
	for _, want := range []string{"Successful: 2/3 designs", "Failed: 1", `[2] "please fail"`} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestProcessorStopOnError(t *testing.T) {
	for _, parallel := range []int{1, 2} {
		backend := &failingBackend{Backend: newBackend(t)}
		p, _, _ := newProcessor(t, backend)

		items := []Item{{Index: 1, Prompt: "fail now"}}
		for i := 2; i <= 20; i++ {
			items = append(items, Item{Index: i, Prompt: "chair"})
		}

		_, err := p.Process(context.Background(), items, &Options{OutputDir: t.TempDir(), Parallel: parallel, StopOnError: true})
		if err == nil {
			t.Errorf("parallel=%d: Process() expected error", parallel)
		}
		if parallel == 1 && backend.calls.Load() != 1 {
			t.Errorf("sequential run continued after failure: %d calls", backend.calls.Load())
		}
	}
}

func TestProcessorInvalidPrompt(t *testing.T) {
	backend := &failingBackend{Backend: newBackend(t)}
	p, _, _ := newProcessor(t, backend)

	results, _ := p.Process(context.Background(), []Item{{Index: 1, Prompt: strings.Repeat("x", 600)}}, &Options{OutputDir: t.TempDir()})
	if !errors.Is(results[0].Error, models.ErrPromptTooLong) {
		t.Errorf("error = %v, want ErrPromptTooLong", results[0].Error)
	}
	if backend.calls.Load() != 0 {
		t.Error("invalid prompt reached the backend")
	}
}

func TestProcessorWithDelay(t *testing.T) {
	p, _, _ := newProcessor(t, newBackend(t))
	items := []Item{{Index: 1, Prompt: "chair"}, {Index: 2, Prompt: "table"}}

	start := time.Now()
	if _, err := p.Process(context.Background(), items, &Options{OutputDir: t.TempDir(), Delay: 30 * time.Millisecond}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Process() took %v, want at least the delay", elapsed)
	}
}

func TestProcessorContextCancellation(t *testing.T) {
	for _, parallel := range []int{1, 2} {
		p, _, _ := newProcessor(t, newBackend(t))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		items := []Item{{Index: 1, Prompt: "chair"}, {Index: 2, Prompt: "table"}}
		if _, err := p.Process(ctx, items, &Options{OutputDir: t.TempDir(), Parallel: parallel}); !errors.Is(err, context.Canceled) {
			t.Errorf("parallel=%d: Process() error = %v, want context.Canceled", parallel, err)
		}
	}
}

func TestProcessorUnsafeOutput(t *testing.T) {
	p, _, _ := newProcessor(t, newBackend(t))
	results, _ := p.Process(context.Background(), []Item{{Index: 1, Prompt: "chair"}}, &Options{OutputDir: "../outside"})
	if results[0].Error == nil || !strings.Contains(results[0].Error.Error(), "export failed") {
		t.Errorf("error = %v, want export failure", results[0].Error)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("a very long prompt", 10); got != "a very ..." {
		t.Errorf("truncate() = %q", got)
	}
}
