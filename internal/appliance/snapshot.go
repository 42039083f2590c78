package appliance

import (
	"sort"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// Snapshot is a point-in-time copy of one appliance's state.
type Snapshot struct {
	Name        string
	Handle      string
	Supported   map[erd.ID][]byte
	Unsupported map[erd.ID][]byte
}

// SupportedIDs returns the supported element identifiers in ascending order.
func (s Snapshot) SupportedIDs() []erd.ID {
	return sortedKeys(s.Supported)
}

// UnsupportedIDs returns the cached element identifiers in ascending order.
func (s Snapshot) UnsupportedIDs() []erd.ID {
	return sortedKeys(s.Unsupported)
}

// Snapshot returns a deep copy of the named appliance.
func (s *Store) Snapshot(name string) (Snapshot, error) {
	d, err := s.device(name)
	if err != nil {
		return Snapshot{}, err
	}
	return d.snapshot(), nil
}

// Snapshots returns a deep copy of every appliance, ordered by name.
func (s *Store) Snapshots() []Snapshot {
	s.mu.RLock()
	devs := make([]*device, 0, len(s.devices))
	for _, d := range s.devices {
		devs = append(devs, d)
	}
	s.mu.RUnlock()

	sort.Slice(devs, func(i, j int) bool { return devs[i].name < devs[j].name })
	out := make([]Snapshot, 0, len(devs))
	for _, d := range devs {
		out = append(out, d.snapshot())
	}
	return out
}

// DeviceCount returns the number of registered appliances.
func (s *Store) DeviceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.devices)
}

func (d *device) snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{
		Name:        d.name,
		Handle:      d.handle,
		Supported:   make(map[erd.ID][]byte, len(d.supported)),
		Unsupported: make(map[erd.ID][]byte, len(d.unsupported)),
	}
	for id, el := range d.supported {
		snap.Supported[id] = clone(el.payload)
	}
	for id, payload := range d.unsupported {
		snap.Unsupported[id] = clone(payload)
	}
	return snap
}

func sortedKeys(m map[erd.ID][]byte) []erd.ID {
	ids := make([]erd.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}
