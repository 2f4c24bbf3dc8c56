package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/manash/designgen/internal/export"
	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/internal/security"
	"github.com/manash/designgen/pkg/models"
)

type Result struct {
	Index    int
	Prompt   string
	Type     models.Category
	Path     string
	Error    error
	Duration time.Duration
}

type Options struct {
	OutputDir   string
	Format      export.Format
	Parallel    int
	StopOnError bool
	Delay       time.Duration
}

type Processor struct {
	backend  provider.Backend
	exporter *export.Exporter
	out      io.Writer
	err      io.Writer
	outMu    sync.Mutex
}

func NewProcessor(backend provider.Backend, exporter *export.Exporter, out, errOut io.Writer) *Processor {
	return &Processor{
		backend:  backend,
		exporter: exporter,
		out:      out,
		err:      errOut,
	}
}

func (p *Processor) printf(format string, args ...any) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...any) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	if opts.Format == "" {
		opts.Format = export.FormatJSON
	}
	if opts.Parallel <= 1 {
		return p.processSequential(ctx, items, opts)
	}
	return p.processParallel(ctx, items, opts)
}

func (p *Processor) processSequential(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := p.processItem(ctx, item, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results, fmt.Errorf("stopped at item %d: %w", i+1, result.Error)
		}

		if opts.Delay > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	return results, nil
}

func (p *Processor) processParallel(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	type job struct {
		index int
		item  Item
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	workers := min(opts.Parallel, len(items))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				result := p.processItem(ctx, j.item, opts, j.index+1, total)

				mu.Lock()
				results[j.index] = result
				if result.Error != nil && opts.StopOnError && firstErr == nil {
					firstErr = result.Error
					cancel()
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i, item := range items {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{index: i, item: item}:
		}
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return results, fmt.Errorf("batch stopped due to error: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index:  item.Index,
		Prompt: item.Prompt,
	}

	p.printf("[%d/%d] Generating: %q...\n", current, total, truncate(item.Prompt, 50))

	fail := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		return result
	}

	if err := models.ValidatePrompt(item.Prompt); err != nil {
		return fail(fmt.Errorf("validation failed: %w", err))
	}

	generated, err := p.backend.Generate(ctx, item.Prompt)
	if err != nil {
		return fail(fmt.Errorf("generation failed: %w", err))
	}

	design := generated.Design
	if item.Material != "" {
		design.Material = item.Material
	}
	result.Type = design.Type

	path := filepath.Join(opts.OutputDir, filename(item, opts.Format))
	if err := p.exporter.Save(design, path); err != nil {
		return fail(fmt.Errorf("export failed: %w", err))
	}

	result.Path = path
	result.Duration = time.Since(start)
	p.printf("       Saved %s: %s\n", design.Type, result.Path)

	return result
}

func filename(item Item, format export.Format) string {
	if item.Name != "" {
		return fmt.Sprintf("%s.%s", security.SanitizeFilename(item.Name), format)
	}
	return fmt.Sprintf("%03d-%s.%s", item.Index, security.Slug(item.Prompt), format)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func (p *Processor) PrintSummary(results []Result) {
	var successful, failed int
	var failures []Result
	byType := make(map[models.Category]int)

	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
			failures = append(failures, r)
		case r.Path != "":
			successful++
			byType[r.Type]++
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Successful: %d/%d designs\n", successful, len(results))
	for _, c := range models.Categories() {
		if n := byType[c]; n > 0 {
			fmt.Fprintf(p.out, "    %-10s %d\n", c, n)
		}
	}
	if failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %d (see errors below)\n", failed)
	}

	if len(failures) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range failures {
			fmt.Fprintf(p.out, "  [%d] %q: %v\n", e.Index, truncate(e.Prompt, 40), e.Error)
		}
	}
}
