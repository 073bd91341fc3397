package param

import "sync"

// Observer is notified after a successful write, synchronously from the
// writer's goroutine (SPEC_FULL.md / spec.md §4.1).
type Observer func(name string, value Value)

// Unsubscribe removes a previously registered observer. Calling it more
// than once is a no-op, mirroring the teacher's hub.unregister guard
// (delete from a map it may have already been removed from).
type Unsubscribe func()

type subscription struct {
	id int
	fn Observer
}

// Registry owns a camera's parameter descriptors in declaration order
// and mediates every read/write/subscribe against them. A Registry is
// safe for concurrent use; Recording is consulted on every write so
// BusyRecording (§4.1, C3) is enforced centrally rather than by each
// backend.
type Registry struct {
	mu   sync.RWMutex
	order []string
	descs map[string]*Descriptor
	values map[string]Value
	subs  map[string][]subscription
	nextSubID int

	// Recording reports whether the owning camera is currently
	// recording; nil means never busy (used by tests that don't wire a
	// full state machine).
	Recording func() bool

	// CrossCheck validates a prospective write against every other
	// parameter's current value (e.g. an ROI write must be checked
	// against the sensor bounds together with the other three ROI
	// fields, not in isolation). It runs after the descriptor's own
	// Kind/Range/Allowed validation and before the BusyRecording check.
	// snapshot holds the registry's current values with name already
	// replaced by the prospective v. nil means no cross-field checks
	// are wired.
	CrossCheck func(name string, snapshot map[string]Value) error
}

// NewRegistry creates an empty registry. Declare parameters with
// Declare before first use; declaration order is list order (§4.1).
func NewRegistry() *Registry {
	return &Registry{
		descs:  make(map[string]*Descriptor),
		values: make(map[string]Value),
		subs:   make(map[string][]subscription),
	}
}

// Declare registers a parameter descriptor and seeds its value from
// Descriptor.Default. Declaring the same name twice replaces the
// descriptor but preserves declaration order and the current value.
func (r *Registry) Declare(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descs[d.Name]; !exists {
		r.order = append(r.order, d.Name)
		r.values[d.Name] = d.Default
	}
	dd := d
	r.descs[d.Name] = &dd
}

// List returns descriptors in stable declaration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.descs[name])
	}
	return out
}

// Get reads a parameter's current value. Reading a write-only
// parameter fails with AccessDenied.
func (r *Registry) Get(name string) (Value, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	if !ok {
		return Value{}, notFound(name)
	}
	if !d.Access.Readable() {
		return Value{}, accessDenied(name, "write-only")
	}
	return r.values[name], nil
}

// Set validates and applies a write, then fires observers for name.
// Validation order matches spec.md §4.1: NotFound, AccessDenied,
// TypeMismatch/OutOfRange, BusyRecording.
func (r *Registry) Set(name string, v Value) error {
	r.mu.Lock()
	d, ok := r.descs[name]
	if !ok {
		r.mu.Unlock()
		return notFound(name)
	}
	if !d.Access.Writable() {
		r.mu.Unlock()
		return accessDenied(name, "read-only")
	}
	if err := d.validate(v); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.CrossCheck != nil {
		snapshot := make(map[string]Value, len(r.values))
		for k, vv := range r.values {
			snapshot[k] = vv
		}
		snapshot[name] = v
		if err := r.CrossCheck(name, snapshot); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	if r.Recording != nil && r.Recording() && !d.LiveWritable {
		r.mu.Unlock()
		return busyRecording(name)
	}
	r.values[name] = v
	subsCopy := append([]subscription(nil), r.subs[name]...)
	r.mu.Unlock()

	for _, s := range subsCopy {
		s.fn(name, v)
	}
	return nil
}

// Subscribe registers an observer for successful writes to name.
// Unsubscribing stops future notifications; it does not replay missed
// ones.
func (r *Registry) Subscribe(name string, fn Observer) Unsubscribe {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSubID
	r.nextSubID++
	r.subs[name] = append(r.subs[name], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			subs := r.subs[name]
			for i, s := range subs {
				if s.id == id {
					r.subs[name] = append(subs[:i], subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Unit returns the unit tag of a parameter, or UnitNA and an error if
// the parameter does not exist.
func (r *Registry) Unit(name string) (Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	if !ok {
		return UnitNA, notFound(name)
	}
	return d.Unit, nil
}

// LiveWritable returns whether a parameter may be changed while the
// camera is recording.
func (r *Registry) LiveWritable(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	if !ok {
		return false, notFound(name)
	}
	return d.LiveWritable, nil
}
