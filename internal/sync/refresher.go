// Package sync keeps roadmap snapshots warm: a Refresher periodically reads
// each registered roadmap through the engine, so interactive callers mostly
// hit a fresh cache instead of paying for a live fetch.
package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/openroadmap/roadmap/internal/engine"
	"github.com/openroadmap/roadmap/internal/source"
)

// State represents the current state of one roadmap's background refresh.
type State int

const (
	Idle State = iota
	Running
	Failed
)

// Status holds the refresh state for a single roadmap.
type Status struct {
	RoadmapID   string
	State       State
	LastRefresh time.Time
	Err         error
}

// Result is emitted after every refresh attempt.
type Result struct {
	RoadmapID string
	ItemCount int
	Stale     bool
	Warning   string
	Err       error

	// CredentialMissing flags refreshes that failed because no usable
	// credential is stored, so a caller can prompt for reconfiguration
	// instead of retrying.
	CredentialMissing bool
}

// ItemsProvider is the slice of the engine the refresher needs.
type ItemsProvider interface {
	GetItems(ctx context.Context, roadmapID string, forceRefresh bool) (*engine.ItemsResult, error)
}

// refreshTimeout bounds a single background refresh.
const refreshTimeout = 60 * time.Second

// Refresher polls registered roadmaps on an interval. Each roadmap gets its
// own goroutine; results are published on a buffered channel and dropped
// when no one is listening.
type Refresher struct {
	provider ItemsProvider
	interval time.Duration

	mu       gosync.Mutex
	roadmaps []string
	statuses map[string]*Status
	triggers map[string]chan struct{}
	running  bool

	resultCh chan Result
	stopCh   chan struct{}
}

// New creates a refresher over the given provider. The interval is how often
// each roadmap is re-read; the engine's own staleness policy decides whether
// a read becomes a live sync.
func New(provider ItemsProvider, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{
		provider: provider,
		interval: interval,
		statuses: make(map[string]*Status),
		triggers: make(map[string]chan struct{}),
		resultCh: make(chan Result, 16),
		stopCh:   make(chan struct{}),
	}
}

// Register adds a roadmap to the refresh rotation. Must be called before
// Start.
func (r *Refresher) Register(roadmapID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.roadmaps = append(r.roadmaps, roadmapID)
	r.statuses[roadmapID] = &Status{RoadmapID: roadmapID, State: Idle}
	r.triggers[roadmapID] = make(chan struct{}, 1)
}

// Start launches one refresh loop per registered roadmap. Calling Start on a
// running refresher is a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	roadmaps := make([]string, len(r.roadmaps))
	copy(roadmaps, r.roadmaps)
	r.mu.Unlock()

	for _, id := range roadmaps {
		go r.loop(id)
	}
}

// Stop halts all refresh loops.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// RefreshNow triggers an immediate refresh of one roadmap, skipping the
// wait for its next tick. Unknown ids and already-pending triggers are
// ignored.
func (r *Refresher) RefreshNow(roadmapID string) {
	r.mu.Lock()
	trigger, ok := r.triggers[roadmapID]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case trigger <- struct{}{}:
	default:
	}
}

// RefreshAll triggers an immediate refresh of every registered roadmap.
func (r *Refresher) RefreshAll() {
	r.mu.Lock()
	roadmaps := make([]string, len(r.roadmaps))
	copy(roadmaps, r.roadmaps)
	r.mu.Unlock()

	for _, id := range roadmaps {
		r.RefreshNow(id)
	}
}

// Results returns the channel refresh outcomes are published on.
func (r *Refresher) Results() <-chan Result {
	return r.resultCh
}

// Statuses returns a snapshot of every roadmap's refresh state.
func (r *Refresher) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]Status, 0, len(r.statuses))
	for _, id := range r.roadmaps {
		statuses = append(statuses, *r.statuses[id])
	}
	return statuses
}

// loop runs the refresh cycle for a single roadmap.
func (r *Refresher) loop(roadmapID string) {
	r.mu.Lock()
	trigger := r.triggers[roadmapID]
	r.mu.Unlock()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Initial refresh before the first tick.
	r.refresh(roadmapID)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.refresh(roadmapID)
		case <-trigger:
			r.refresh(roadmapID)
		}
	}
}

// refresh performs one read through the engine and publishes the outcome.
func (r *Refresher) refresh(roadmapID string) {
	r.setStatus(roadmapID, Running, nil)

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	items, err := r.provider.GetItems(ctx, roadmapID, false)
	if err != nil {
		r.setStatus(roadmapID, Failed, err)
		r.publish(Result{
			RoadmapID:         roadmapID,
			Err:               err,
			CredentialMissing: errors.Is(err, source.ErrMissingCredential),
		})
		return
	}

	r.setStatus(roadmapID, Idle, nil)
	r.publish(Result{
		RoadmapID: roadmapID,
		ItemCount: len(items.Items),
		Stale:     items.Stale,
		Warning:   items.Warning,
	})
}

func (r *Refresher) setStatus(roadmapID string, state State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[roadmapID]
	if !ok {
		return
	}
	status.State = state
	status.Err = err
	if state == Idle && err == nil {
		status.LastRefresh = time.Now()
	}
}

// publish sends a result without blocking; slow consumers lose results
// rather than stalling the refresh loops.
func (r *Refresher) publish(res Result) {
	select {
	case r.resultCh <- res:
	default:
	}
}
