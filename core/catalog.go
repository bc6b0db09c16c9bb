package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/orbital-scope/model"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrDuplicateObject = errors.New("duplicate object ID")
)

// EventType indicates what kind of change happened in the catalog.
type EventType int

const (
	EventCatalogReplaced EventType = iota
)

// Event is emitted to subscribers when the catalog contents change.
type Event struct {
	Type  EventType
	Count int
}

// CatalogMetricsRecorder receives catalog size updates so the observability
// layer can expose them without the catalog importing it.
type CatalogMetricsRecorder interface {
	SetCatalogSize(n int)
}

// Catalog is the in-memory, thread-safe store of tracked orbital objects.
// Feeds replace its contents wholesale; readers always see a complete
// generation, never a partially applied one. Iteration order is fixed per
// generation (orbit zone, then descending risk, then ID) so draw order and
// hover resolution stay deterministic between frames.
type Catalog struct {
	mu sync.RWMutex

	objects map[string]model.OrbitalElements
	ordered []string

	subs      map[int]func(Event)
	nextSubID int

	metrics CatalogMetricsRecorder
}

// CatalogOption customises a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogMetricsRecorder wires size updates into a metrics sink.
func WithCatalogMetricsRecorder(r CatalogMetricsRecorder) CatalogOption {
	return func(c *Catalog) { c.metrics = r }
}

// NewCatalog constructs an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		objects: make(map[string]model.OrbitalElements),
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Replace swaps the entire object set for a new generation. The previous
// contents are discarded even when the new set is empty. Entries must carry
// unique, non-empty IDs; on error the catalog is left unchanged.
func (c *Catalog) Replace(elements []model.OrbitalElements) error {
	objects := make(map[string]model.OrbitalElements, len(elements))
	for _, el := range elements {
		if el.ID == "" {
			return fmt.Errorf("%w: empty object ID", model.ErrInvalidElements)
		}
		if _, exists := objects[el.ID]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateObject, el.ID)
		}
		objects[el.ID] = el
	}
	ordered := orderedIDs(objects)

	c.mu.Lock()
	c.objects = objects
	c.ordered = ordered
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetCatalogSize(len(objects))
	}

	// Notify subscribers outside the lock to avoid deadlocks.
	event := Event{Type: EventCatalogReplaced, Count: len(objects)}
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Get returns the object with the given ID.
func (c *Catalog) Get(id string) (model.OrbitalElements, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	el, ok := c.objects[id]
	if !ok {
		return model.OrbitalElements{}, fmt.Errorf("%w: %q", ErrObjectNotFound, id)
	}
	return el, nil
}

// List returns a snapshot slice of all objects in catalog order.
func (c *Catalog) List() []model.OrbitalElements {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.OrbitalElements, 0, len(c.ordered))
	for _, id := range c.ordered {
		out = append(out, c.objects[id])
	}
	return out
}

// Len returns the number of tracked objects.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// Subscribe registers a callback for catalog events. It returns an
// unsubscribe function.
func (c *Catalog) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// orderedIDs fixes the iteration order for a generation: orbit zone
// lexicographically, highest risk first within a zone, ID as tiebreak.
func orderedIDs(objects map[string]model.OrbitalElements) []string {
	ids := make([]string, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := objects[ids[i]], objects[ids[j]]
		if a.OrbitZone != b.OrbitZone {
			return a.OrbitZone < b.OrbitZone
		}
		if a.RiskFactor != b.RiskFactor {
			return a.RiskFactor > b.RiskFactor
		}
		return ids[i] < ids[j]
	})
	return ids
}
