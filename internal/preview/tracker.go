// Package preview tracks the simulated preview-render jobs the mock backend
// starts for every generated design.
package preview

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/manash/designgen/pkg/models"
)

var ErrJobNotFound = errors.New("preview job not found")

const (
	DefaultReadyAfter = 4 * time.Second
	DefaultRetention  = time.Hour
)

type Options struct {
	ReadyAfter time.Duration
	FailRate   float64
	Retention  time.Duration
	Now        func() time.Time
}

type job struct {
	started time.Time
	fails   bool
}

type Tracker struct {
	mu         sync.Mutex
	jobs       map[int64]*job
	readyAfter time.Duration
	failRate   float64
	retention  time.Duration
	now        func() time.Time
}

func NewTracker(opts Options) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.ReadyAfter < 0 {
		opts.ReadyAfter = 0
	}
	return &Tracker{
		jobs:       make(map[int64]*job),
		readyAfter: opts.ReadyAfter,
		failRate:   opts.FailRate,
		retention:  opts.Retention,
		now:        opts.Now,
	}
}

// Start registers a job for the design. Expired jobs are pruned here so the
// map stays bounded without a background goroutine.
func (t *Tracker) Start(designID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)
	t.jobs[designID] = &job{
		started: now,
		fails:   t.failRate > 0 && rand.Float64() < t.failRate,
	}
}

func (t *Tracker) Status(designID int64) (*models.StatusResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[designID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, designID)
	}

	if t.now().Sub(j.started) < t.readyAfter {
		return &models.StatusResponse{Status: models.JobPending}, nil
	}
	if j.fails {
		return &models.StatusResponse{Status: models.JobFailed, Error: "preview render failed"}, nil
	}
	return &models.StatusResponse{
		Status:     models.JobCompleted,
		PreviewURL: URL(designID),
	}, nil
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

func (t *Tracker) prune(now time.Time) {
	for id, j := range t.jobs {
		if now.Sub(j.started) > t.retention {
			delete(t.jobs, id)
		}
	}
}

func URL(designID int64) string {
	return fmt.Sprintf("/previews/%d.glb", designID)
}
