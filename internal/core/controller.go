package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/dataviz/internal/source"
	"github.com/JonMunkholm/dataviz/internal/table"
	"github.com/JonMunkholm/dataviz/internal/widget"
)

// State is the lifecycle state of a session's output pane.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateDisplayed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateDisplayed:
		return "displayed"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the observable state of a Controller. View and Table are set
// only in StateDisplayed.
type Snapshot struct {
	Attempt   uint64       `json:"attempt"`
	State     State        `json:"state"`
	Status    LoadStatus   `json:"status"`
	Source    string       `json:"source,omitempty"`
	Origin    string       `json:"origin,omitempty"`
	Format    string       `json:"format,omitempty"`
	Rows      int          `json:"rows"`
	Cols      int          `json:"cols"`
	UpdatedAt time.Time    `json:"updated_at"`
	View      *widget.View `json:"-"`
	Table     *table.Table `json:"-"`
	Err       error        `json:"-"`
}

// Resolver obtains a decoded table from user input.
type Resolver interface {
	Resolve(ctx context.Context, in source.RawInput) (*source.Result, error)
}

// ViewBuilder constructs the explorer for a table.
type ViewBuilder interface {
	Build(t *table.Table, title string) (*widget.View, error)
}

// Outcome is how an attempt ended.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeError      Outcome = "error"
	OutcomeSuperseded Outcome = "superseded"
)

// LoadObserver is notified around each attempt.
type LoadObserver interface {
	LoadStarted(origin source.Origin)
	LoadFinished(origin source.Origin, outcome Outcome, snap Snapshot, elapsed time.Duration)
}

// Controller runs load attempts for one session and owns its output slot.
//
// Each attempt moves Idle|Displayed|Failed -> Loading -> Displayed|Failed.
// Attempts are numbered; only the newest may publish its result, so a slow
// attempt that finishes after a newer one started is dropped.
type Controller struct {
	resolver Resolver
	builder  ViewBuilder
	limiter  *LoadLimiter
	observer LoadObserver
	now      func() time.Time

	mu   sync.Mutex
	snap Snapshot
	subs map[chan Snapshot]struct{}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLimiter gates attempts on a shared LoadLimiter.
func WithLimiter(l *LoadLimiter) ControllerOption {
	return func(c *Controller) { c.limiter = l }
}

// WithObserver reports attempt outcomes to o.
func WithObserver(o LoadObserver) ControllerOption {
	return func(c *Controller) { c.observer = o }
}

// NewController creates an idle Controller.
func NewController(r Resolver, b ViewBuilder, opts ...ControllerOption) *Controller {
	c := &Controller{
		resolver: r,
		builder:  b,
		now:      time.Now,
		subs:     make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.snap = Snapshot{State: StateIdle, Status: LoadStatus{Kind: StatusNone}, UpdatedAt: c.now()}
	return c
}

// Load runs one attempt and returns the controller's snapshot afterwards.
// Load never returns an error: failures become the snapshot's status.
func (c *Controller) Load(ctx context.Context, in source.RawInput) Snapshot {
	origin := in.Origin()
	attempt := c.clear()
	start := c.now()

	if c.observer != nil {
		c.observer.LoadStarted(origin)
	}
	snap := c.run(ctx, attempt, in)
	if c.observer != nil {
		c.observer.LoadFinished(origin, outcomeOf(attempt, snap), snap, c.now().Sub(start))
	}
	return snap
}

func outcomeOf(attempt uint64, snap Snapshot) Outcome {
	switch {
	case snap.Attempt != attempt:
		return OutcomeSuperseded
	case snap.State == StateDisplayed:
		return OutcomeSuccess
	default:
		return OutcomeError
	}
}

// run ends in exactly one of fail or succeed, including when a stage panics.
func (c *Controller) run(ctx context.Context, attempt uint64, in source.RawInput) (snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			snap = c.fail(attempt, fmt.Errorf("load aborted: %v", r))
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return c.fail(attempt, err)
		}
		defer c.limiter.Release()
	}

	res, err := c.resolver.Resolve(ctx, in)
	if err != nil {
		return c.fail(attempt, err)
	}

	view, err := c.builder.Build(res.Table, res.Name)
	if err != nil {
		return c.fail(attempt, err)
	}

	return c.succeed(attempt, res, view)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe returns a channel receiving every published snapshot, starting
// with the current one. Slow subscribers miss intermediate snapshots.
// Call cancel to unsubscribe; it closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- c.snap
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// clear starts a new attempt: output and status are emptied before any work.
func (c *Controller) clear() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = Snapshot{
		Attempt:   c.snap.Attempt + 1,
		State:     StateLoading,
		Status:    LoadStatus{Kind: StatusNone},
		UpdatedAt: c.now(),
	}
	c.publishLocked()
	return c.snap.Attempt
}

func (c *Controller) fail(attempt uint64, err error) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if attempt != c.snap.Attempt {
		return c.snap
	}
	c.snap = Snapshot{
		Attempt:   attempt,
		State:     StateFailed,
		Status:    StatusFor(err),
		UpdatedAt: c.now(),
		Err:       err,
	}
	c.publishLocked()
	return c.snap
}

func (c *Controller) succeed(attempt uint64, res *source.Result, view *widget.View) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if attempt != c.snap.Attempt {
		return c.snap
	}
	c.snap = Snapshot{
		Attempt:   attempt,
		State:     StateDisplayed,
		Status:    SuccessStatus(res.Table.NumRows(), res.Table.NumCols()),
		Source:    res.Name,
		Origin:    res.Origin.String(),
		Format:    res.Format.String(),
		Rows:      res.Table.NumRows(),
		Cols:      res.Table.NumCols(),
		UpdatedAt: c.now(),
		View:      view,
		Table:     res.Table,
	}
	c.publishLocked()
	return c.snap
}

func (c *Controller) publishLocked() {
	for ch := range c.subs {
		select {
		case ch <- c.snap:
		default:
		}
	}
}
