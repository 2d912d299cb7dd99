package devices

import "sync"

// Registry is the set of known devices keyed by identifier. Both the
// discovery path and the inbound message path touch it concurrently, so all
// access goes through one mutex. The lock is held only for map operations,
// never across network calls.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
	order   []string
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*Device),
	}
}

// Register inserts a device, replacing any existing device with the same
// identifier. Re-discovery of a known identifier updates, never duplicates.
func (r *Registry) Register(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.devices[d.ID()]; !exists {
		r.order = append(r.order, d.ID())
	}
	r.devices[d.ID()] = d
}

// Lookup returns the device with the given identifier.
func (r *Registry) Lookup(id string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	return d, ok
}

// Snapshot returns the devices in registration order. The copy is taken
// under lock and can then be iterated without holding it, which keeps
// network calls like resubscription outside the critical section.
func (r *Registry) Snapshot() []*Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make([]*Device, 0, len(r.order))
	for _, id := range r.order {
		snapshot = append(snapshot, r.devices[id])
	}
	return snapshot
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
