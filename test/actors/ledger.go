package actors

import (
	"math/rand"
	"sync"
)

// State is what the actors know about an appeal id from acknowledged calls.
type State int

const (
	// Live was created and has not been resolved or deleted.
	Live State = iota
	// Resolved had a Resolve acknowledged.
	Resolved
	// Deleted had a Delete acknowledged.
	Deleted
	// Uncertain saw a failed call, so its stored state is unknown.
	Uncertain
)

func (s State) String() string {
	switch s {
	case Live:
		return "live"
	case Resolved:
		return "resolved"
	case Deleted:
		return "deleted"
	default:
		return "uncertain"
	}
}

// Ledger records acknowledged operations so oracles can compare them with the
// stored collection.
type Ledger struct {
	mu       sync.Mutex
	states   map[string]State
	ids      []string
	failures int
}

func NewLedger() *Ledger {
	return &Ledger{states: make(map[string]State)}
}

func (l *Ledger) Created(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.states[id]; !ok {
		l.ids = append(l.ids, id)
	}
	l.states[id] = Live
}

func (l *Ledger) Resolved(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.states[id] == Live {
		l.states[id] = Resolved
	}
}

func (l *Ledger) Deleted(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.states[id]; ok {
		l.states[id] = Deleted
	}
}

// Failed marks id as uncertain. Deleted ids stay deleted since nothing can
// bring them back.
func (l *Ledger) Failed(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures++
	if st, ok := l.states[id]; ok && st != Deleted {
		l.states[id] = Uncertain
	}
}

// Pick returns a known id, or "" when nothing was created yet.
func (l *Ledger) Pick(rng *rand.Rand) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ids) == 0 {
		return ""
	}
	return l.ids[rng.Intn(len(l.ids))]
}

// Snapshot copies the current states.
func (l *Ledger) Snapshot() map[string]State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]State, len(l.states))
	for id, st := range l.states {
		out[id] = st
	}
	return out
}

// Counts tallies ids per state plus the number of failed calls.
func (l *Ledger) Counts() (map[State]int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[State]int, 4)
	for _, st := range l.states {
		out[st]++
	}
	return out, l.failures
}
