// Package detector keeps one snapshot per monitored resource and turns fresh
// fetches into change events.
package detector

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raykavin/upbitwatch/pkg/core"
)

var ErrUnknownResource = errors.New("unknown resource")

// Detector owns the snapshot of a single resource. Detect holds the detector
// lock for the whole diff, so concurrent polls of the same resource are
// applied one after the other.
type Detector struct {
	mu       sync.Mutex
	resource string
	policy   Policy
	snapshot *Snapshot
	clock    func() time.Time
}

// Detect diffs fresh against the snapshot. The first non-empty fetch primes
// the snapshot and reports nothing. An empty fetch is treated as no data.
func (d *Detector) Detect(fresh []core.Entity) []core.Event {
	if len(fresh) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.snapshot == nil {
		d.snapshot = newSnapshot()
		d.policy.prime(d.snapshot, fresh)
		return nil
	}

	changes := d.policy.diff(d.snapshot, fresh)
	if len(changes) == 0 {
		return nil
	}

	now := d.clock()
	events := make([]core.Event, 0, len(changes))
	for _, c := range changes {
		events = append(events, core.Event{
			ID:       uuid.NewString(),
			Kind:     d.policy.Kind(),
			Resource: d.resource,
			Key:      c.entity.Key,
			Entity:   c.entity,
			Previous: c.previous,
			Time:     now,
		})
	}
	return events
}

// Primed reports whether a snapshot exists.
func (d *Detector) Primed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot != nil
}

// Snapshot returns a copy of the current snapshot, nil before priming.
func (d *Detector) Snapshot() *Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.snapshot == nil {
		return nil
	}
	return d.snapshot.clone()
}

// Reset drops the snapshot; the next fetch primes again.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.snapshot = nil
	d.mu.Unlock()
}

func (d *Detector) Policy() Policy {
	return d.policy
}

// Engine is the registry of detectors keyed by resource id.
type Engine struct {
	mu        sync.RWMutex
	detectors map[string]*Detector
	clock     func() time.Time
}

type Option func(*Engine)

// WithClock overrides the event timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func NewEngine(options ...Option) *Engine {
	e := &Engine{
		detectors: make(map[string]*Detector),
		clock:     time.Now,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Track registers resource with policy. Tracking an existing resource returns
// its detector untouched.
func (e *Engine) Track(resource string, policy Policy) *Detector {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d, ok := e.detectors[resource]; ok {
		return d
	}

	d := &Detector{resource: resource, policy: policy, clock: e.clock}
	e.detectors[resource] = d
	return d
}

// Detector looks up the detector of resource.
func (e *Engine) Detector(resource string) (*Detector, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.detectors[resource]
	return d, ok
}

// DetectChanges diffs fresh against the snapshot of resource.
func (e *Engine) DetectChanges(resource string, fresh []core.Entity) ([]core.Event, error) {
	d, ok := e.Detector(resource)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	return d.Detect(fresh), nil
}

// Reset drops the snapshot of resource.
func (e *Engine) Reset(resource string) error {
	d, ok := e.Detector(resource)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	d.Reset()
	return nil
}

// Resources lists the tracked resource ids, sorted.
func (e *Engine) Resources() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	resources := make([]string, 0, len(e.detectors))
	for r := range e.detectors {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	return resources
}
