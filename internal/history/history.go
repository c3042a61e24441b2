// Package history holds the bounded conversational context buffer for a session
package history

import "strings"

// DefaultCapacity is the number of turns kept when no capacity is configured
const DefaultCapacity = 20

// Role identifies who authored a turn
type Role string

const (
	// RoleSelf marks turns authored by the operator (or sent by this process)
	RoleSelf Role = "self"

	// RolePeer marks turns authored by the conversational partner
	RolePeer Role = "peer"
)

// Turn is one recorded conversational contribution
type Turn struct {
	ID   int64
	Role Role
	Text string
}

// Store is a bounded, order-preserving, deduplicated record of recent turns.
// It is owned by a single pipeline and is not safe for concurrent use.
type Store struct {
	capacity int
	turns    []Turn
	seen     map[int64]struct{}
}

// NewStore creates an empty store. A non-positive capacity falls back to
// DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		turns:    make([]Turn, 0, capacity),
		seen:     make(map[int64]struct{}, capacity),
	}
}

// Record appends a turn after normalizing its text. Duplicate ids and text
// that normalizes to empty are absorbed silently; the chat transport may
// redeliver or echo events, so neither case is an error. Returns true only
// when a turn was actually appended.
func (s *Store) Record(id int64, role Role, text string) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	clean := Normalize(text)
	if clean == "" {
		return false
	}

	s.turns = append(s.turns, Turn{ID: id, Role: role, Text: clean})
	s.seen[id] = struct{}{}

	if len(s.turns) > s.capacity {
		oldest := s.turns[0]
		s.turns = s.turns[1:]
		delete(s.seen, oldest.ID)
	}
	return true
}

// Snapshot returns a copy of the current turns in chronological order
func (s *Store) Snapshot() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of recorded turns
func (s *Store) Len() int {
	return len(s.turns)
}

// Capacity returns the maximum number of turns retained
func (s *Store) Capacity() int {
	return s.capacity
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Normalize collapses line breaks to spaces and strips surrounding whitespace
func Normalize(text string) string {
	return strings.TrimSpace(lineBreaks.Replace(text))
}
