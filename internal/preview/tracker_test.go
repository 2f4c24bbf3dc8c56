package preview

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/manash/designgen/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTracker_Lifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTracker(Options{ReadyAfter: 2 * time.Second, Now: clock.Now})

	tr.Start(42)

	st, err := tr.Status(42)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Status != models.JobPending {
		t.Errorf("Status = %v, want pending", st.Status)
	}
	if st.PreviewURL != "" {
		t.Errorf("PreviewURL = %q, want empty while pending", st.PreviewURL)
	}

	clock.Advance(2 * time.Second)

	st, err = tr.Status(42)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Status != models.JobCompleted {
		t.Errorf("Status = %v, want completed", st.Status)
	}
	if st.PreviewURL != "/previews/42.glb" {
		t.Errorf("PreviewURL = %q", st.PreviewURL)
	}
}

func TestTracker_Failing(t *testing.T) {
	tr := NewTracker(Options{FailRate: 1})
	tr.Start(7)

	st, err := tr.Status(7)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Status != models.JobFailed {
		t.Errorf("Status = %v, want failed", st.Status)
	}
	if st.Error == "" {
		t.Error("failed status should carry an error message")
	}
}

func TestTracker_UnknownJob(t *testing.T) {
	tr := NewTracker(Options{})
	if _, err := tr.Status(1); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Status() error = %v, want ErrJobNotFound", err)
	}
}

func TestTracker_Prune(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTracker(Options{Retention: time.Minute, Now: clock.Now})

	tr.Start(1)
	clock.Advance(2 * time.Minute)
	tr.Start(2)

	if got := tr.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 after prune", got)
	}
	if _, err := tr.Status(1); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Status(1) error = %v, want ErrJobNotFound", err)
	}
}
