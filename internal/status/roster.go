package status

import "sync"

// RosterSnapshot is a copy of the roster at one point in time.
type RosterSnapshot struct {
	Count   int
	Max     uint32
	Players []string
}

// Roster tracks connected players. The set and its count share one lock;
// the server-reported capacity has its own.
type Roster struct {
	mu      sync.Mutex
	players []string // join order
	index   map[string]struct{}
	count   int

	maxMu sync.Mutex
	max   uint32
}

func NewRoster() *Roster {
	return &Roster{index: map[string]struct{}{}}
}

// Joined adds name. It returns false when name was already present.
func (r *Roster) Joined(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[name]; ok {
		return false
	}
	r.index[name] = struct{}{}
	r.players = append(r.players, name)
	r.count++
	return true
}

// Left removes name. It returns false when name was not present.
func (r *Roster) Left(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[name]; !ok {
		return false
	}
	delete(r.index, name)
	for i, p := range r.players {
		if p == name {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	r.count--
	return true
}

// Clear drops every player. The capacity figure is kept.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players = nil
	r.index = map[string]struct{}{}
	r.count = 0
}

// SetMaxCapacity overwrites the server-reported capacity.
func (r *Roster) SetMaxCapacity(n uint32) {
	r.maxMu.Lock()
	defer r.maxMu.Unlock()
	r.max = n
}

// MaxCapacity returns the last reported capacity.
func (r *Roster) MaxCapacity() uint32 {
	r.maxMu.Lock()
	defer r.maxMu.Unlock()
	return r.max
}

// Snapshot reads the player set and then the capacity; the two are not
// read under one lock.
func (r *Roster) Snapshot() RosterSnapshot {
	r.mu.Lock()
	snap := RosterSnapshot{
		Count:   r.count,
		Players: append([]string(nil), r.players...),
	}
	r.mu.Unlock()

	snap.Max = r.MaxCapacity()
	return snap
}
