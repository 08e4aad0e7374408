package mcp

import (
	"fmt"
	"strconv"
	"sync"
)

// Kind is the entity type behind a session ref. Its value is the ref prefix.
type Kind string

const (
	KindContract Kind = "C"
	KindNote     Kind = "N"
	KindTimer    Kind = "T"
)

// Ref is an entity tracked in the session.
type Ref struct {
	Kind Kind
	ID   string
}

// Session hands out short refs (C1, N1, T1...) for ids shown to the agent,
// so later tool calls can name an entity without repeating long ids. Each
// kind has its own counter.
type Session struct {
	mu       sync.Mutex
	refs     map[string]Ref
	reverse  map[Ref]string
	counters map[Kind]int
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		refs:     make(map[string]Ref),
		reverse:  make(map[Ref]string),
		counters: make(map[Kind]int),
	}
}

// Track returns the ref for id, assigning the next one for its kind on
// first sight.
func (s *Session) Track(kind Kind, id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Ref{Kind: kind, ID: id}
	if ref, ok := s.reverse[key]; ok {
		return ref
	}
	s.counters[kind]++
	ref := fmt.Sprintf("%s%d", kind, s.counters[kind])
	s.refs[ref] = key
	s.reverse[key] = ref
	return ref
}

// Resolve maps a ref back to its entity.
func (s *Session) Resolve(ref string) (Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refs[ref]
	return r, ok
}

// ID resolves ref when it is a tracked ref of kind, and otherwise treats
// it as a raw id.
func (s *Session) ID(kind Kind, ref string) string {
	if len(ref) < 2 || Kind(ref[:1]) != kind {
		return ref
	}
	if _, err := strconv.Atoi(ref[1:]); err != nil {
		return ref
	}
	if r, ok := s.Resolve(ref); ok && r.Kind == kind {
		return r.ID
	}
	return ref
}

// Clear forgets every ref and resets the counters.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = make(map[string]Ref)
	s.reverse = make(map[Ref]string)
	s.counters = make(map[Kind]int)
}
