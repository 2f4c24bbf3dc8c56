package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/manash/designgen/internal/poll"
	"github.com/manash/designgen/internal/provider"
	"github.com/manash/designgen/internal/security"
	"github.com/manash/designgen/pkg/models"
)

var (
	ErrNoDesign      = errors.New("no current design")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrEmptyMaterial = errors.New("material cannot be empty")
)

type PreviewState string

const (
	PreviewNone    PreviewState = "none"
	PreviewPending PreviewState = "pending"
	PreviewReady   PreviewState = "ready"
	PreviewFailed  PreviewState = "failed"
)

// Preview is the state of the 3D preview for the current design.
type Preview struct {
	DesignID int64
	State    PreviewState
	URL      string
	Err      error
}

type Options struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	// PreviewBase resolves relative preview URLs; usually the backend URL.
	PreviewBase string
	// OnPreview is called from the polling goroutine when a preview for the
	// current design settles.
	OnPreview func(Preview)
}

// Manager holds the workspace view state: the current design, its preview
// and the lineage of designs shown so far.
type Manager struct {
	store   *Store
	backend provider.Backend
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	polls  poll.Supervisor

	// opMu serializes operations that replace the current design. Preview
	// delivery only takes mu, so opMu may be held while stopping a poll.
	opMu sync.Mutex

	mu      sync.Mutex
	current *models.Design
	entryID int64
	preview Preview
}

func NewManager(store *Store, backend provider.Backend, opts Options) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:   store,
		backend: backend,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		preview: Preview{State: PreviewNone},
	}
}

func (m *Manager) Store() *Store {
	return m.store
}

// Current returns a copy of the current design, or nil.
func (m *Manager) Current() *models.Design {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

func (m *Manager) HasDesign() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

func (m *Manager) Preview() Preview {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preview
}

// Generate asks the backend for a design and makes it current. Invalid
// prompts are rejected before any request. Any preview poll for the previous
// design is cancelled and a new one started.
func (m *Manager) Generate(ctx context.Context, prompt string) (*models.Design, error) {
	if err := models.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	generated, err := m.backend.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	design := generated.Design
	if design.Prompt == "" {
		design.Prompt = strings.TrimSpace(prompt)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.polls.Stop()
	if err := m.replace(ctx, design, OpGenerate, 0); err != nil {
		return nil, err
	}

	switch {
	case generated.PreviewURL != "":
		m.setPreview(Preview{DesignID: design.ID, State: PreviewReady, URL: m.resolve(generated.PreviewURL)})
	case design.ID != 0:
		m.startPreview(design.ID)
	}

	return design.Clone(), nil
}

// Evaluate rates the current design. The current design is left unchanged;
// the response may carry a suggested next iteration.
func (m *Manager) Evaluate(ctx context.Context, rating int, feedback string) (*models.EvaluateResponse, error) {
	current := m.Current()
	if current == nil {
		return nil, ErrNoDesign
	}
	if err := models.ValidateRating(rating); err != nil {
		return nil, err
	}

	return m.backend.Evaluate(ctx, &models.EvaluateRequest{
		DesignID: current.ID,
		Rating:   rating,
		Feedback: strings.TrimSpace(feedback),
	})
}

// Iterate asks the backend to refine the current design and replaces it with
// the result.
func (m *Manager) Iterate(ctx context.Context, feedback string) (*models.Design, error) {
	current := m.Current()
	if current == nil {
		return nil, ErrNoDesign
	}

	design, err := m.backend.Iterate(ctx, &models.IterateRequest{
		DesignID: current.ID,
		Feedback: strings.TrimSpace(feedback),
	})
	if err != nil {
		return nil, err
	}
	if design.Prompt == "" {
		design.Prompt = current.Prompt
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.polls.Stop()
	if err := m.replace(ctx, design, OpIterate, m.currentEntry()); err != nil {
		return nil, err
	}
	m.setPreview(Preview{DesignID: design.ID, State: PreviewNone})
	return design.Clone(), nil
}

// SetMaterial changes the material of the current design locally.
func (m *Manager) SetMaterial(ctx context.Context, material string) (*models.Design, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, ErrEmptyMaterial
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	design := m.Current()
	if design == nil {
		return nil, ErrNoDesign
	}
	design.Material = material

	if err := m.replace(ctx, design, OpMaterial, m.currentEntry()); err != nil {
		return nil, err
	}
	return design.Clone(), nil
}

// Save appends the current design to the saved list.
func (m *Manager) Save(ctx context.Context) (*models.SavedDesign, error) {
	current := m.Current()
	if current == nil {
		return nil, ErrNoDesign
	}
	return m.store.SaveDesign(ctx, current)
}

// Load makes a saved design current. ref is a record id or list position.
func (m *Manager) Load(ctx context.Context, ref string) (*models.SavedDesign, error) {
	saved, err := m.store.GetSaved(ctx, ref)
	if err != nil {
		return nil, err
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.polls.Stop()
	if err := m.replace(ctx, saved.Spec.Clone(), OpLoad, m.currentEntry()); err != nil {
		return nil, err
	}
	m.setPreview(Preview{DesignID: saved.Spec.ID, State: PreviewNone})
	return saved, nil
}

// Undo returns to the design the current one was derived from.
func (m *Manager) Undo(ctx context.Context) (*models.Design, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	entryID := m.currentEntry()
	if entryID == 0 {
		return nil, ErrNothingToUndo
	}
	entry, err := m.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history entry: %w", err)
	}
	if entry.ParentID == 0 {
		return nil, ErrNothingToUndo
	}
	parent, err := m.store.GetEntry(ctx, entry.ParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parent entry: %w", err)
	}

	m.polls.Stop()
	m.mu.Lock()
	m.current = parent.Design
	m.entryID = parent.ID
	m.preview = Preview{DesignID: parent.Design.ID, State: PreviewNone}
	m.mu.Unlock()

	return parent.Design.Clone(), nil
}

func (m *Manager) History(ctx context.Context, limit int) ([]*Entry, error) {
	return m.store.ListEntries(ctx, limit)
}

// WaitPreview blocks until the active preview poll, if any, has settled.
func (m *Manager) WaitPreview(ctx context.Context) Preview {
	done := make(chan struct{})
	go func() {
		m.polls.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.polls.Stop()
		<-done
	}
	return m.Preview()
}

// Close stops any preview poll. The store is owned by the caller.
func (m *Manager) Close() {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.cancel()
	m.polls.Stop()
}

func (m *Manager) replace(ctx context.Context, design *models.Design, op Operation, parentID int64) error {
	entry := &Entry{ParentID: parentID, Operation: op, Design: design}
	if err := m.store.AddEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to record design: %w", err)
	}

	m.mu.Lock()
	m.current = design.Clone()
	m.entryID = entry.ID
	m.mu.Unlock()
	return nil
}

func (m *Manager) currentEntry() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entryID
}

func (m *Manager) setPreview(p Preview) {
	m.mu.Lock()
	m.preview = p
	m.mu.Unlock()
}

func (m *Manager) startPreview(designID int64) {
	m.setPreview(Preview{DesignID: designID, State: PreviewPending})

	p := poll.New(func(ctx context.Context) (*models.StatusResponse, error) {
		return m.backend.Status(ctx, designID)
	})
	if m.opts.PollInterval > 0 {
		p.Interval = m.opts.PollInterval
	}
	if m.opts.MaxPollAttempts > 0 {
		p.MaxAttempts = m.opts.MaxPollAttempts
	}

	m.polls.Start(m.ctx, p, func(status *models.StatusResponse, err error) {
		result := Preview{DesignID: designID, State: PreviewReady}
		if err != nil {
			result.State = PreviewFailed
			result.Err = err
		} else {
			result.URL = m.resolve(status.PreviewURL)
		}

		m.mu.Lock()
		if m.current == nil || m.current.ID != designID {
			m.mu.Unlock()
			return
		}
		m.preview = result
		m.mu.Unlock()

		if m.opts.OnPreview != nil {
			m.opts.OnPreview(result)
		}
	})
}

func (m *Manager) resolve(ref string) string {
	if m.opts.PreviewBase == "" {
		return ref
	}
	resolved, err := security.ResolveURL(m.opts.PreviewBase, ref)
	if err != nil {
		return ref
	}
	return resolved
}
