package upload

import (
	"sync"
)

// Staging holds guest files in memory, keyed by wizard session, until an
// account exists to own their storage paths. Entries live for the duration
// of a wizard session and are dropped after a successful flush.
type Staging struct {
	mu       sync.Mutex
	sessions map[string]map[Field][]File
}

func NewStaging() *Staging {
	return &Staging{sessions: make(map[string]map[Field][]File)}
}

func (s *Staging) Add(session string, field Field, files ...File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.sessions[session]
	if !ok {
		fields = make(map[Field][]File)
		s.sessions[session] = fields
	}
	fields[field] = append(fields[field], files...)
}

// Files returns a copy of everything staged for a session.
func (s *Staging) Files(session string) map[Field][]File {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Field][]File, len(s.sessions[session]))
	for field, files := range s.sessions[session] {
		out[field] = append([]File(nil), files...)
	}
	return out
}

func (s *Staging) Clear(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session)
}
