// Package edit holds the pending, not yet committed text of parameter edits
// for one configuration interaction.
package edit

import (
	"errors"
	"sort"

	"github.com/mldulaney/scopehal-apps/internal/param"
)

// ErrNoPendingEdit is returned by TryCommit for a name that was never begun.
var ErrNoPendingEdit = errors.New("no pending edit")

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("edit session closed")

// ParseFunc turns pending text into a typed value.
type ParseFunc func(text string) (param.Value, error)

// Session maps parameter names to pending text. The zero value is not
// usable; call NewSession.
type Session struct {
	pending map[string]string
	closed  bool
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{pending: make(map[string]string)}
}

// Begin seeds the entry for name with text unless one already exists, and
// returns the entry's text. Calling it again does not overwrite edits.
func (s *Session) Begin(name, text string) (string, error) {
	if s.closed {
		return "", ErrClosed
	}
	if cur, ok := s.pending[name]; ok {
		return cur, nil
	}
	s.pending[name] = text
	return text, nil
}

// Update replaces the pending text for name. No validation is done. On a
// closed session it does nothing.
func (s *Session) Update(name, text string) {
	if s.closed {
		return
	}
	s.pending[name] = text
}

// Pending returns the pending text for name.
func (s *Session) Pending(name string) (string, bool) {
	text, ok := s.pending[name]
	return text, ok
}

// TryCommit parses the pending text for name. The text stays pending
// whether or not parsing succeeds; the caller writes the value.
func (s *Session) TryCommit(name string, parse ParseFunc) (param.Value, error) {
	if s.closed {
		return nil, ErrClosed
	}
	text, ok := s.pending[name]
	if !ok {
		return nil, ErrNoPendingEdit
	}
	return parse(text)
}

// Discard drops the pending text for one name.
func (s *Session) Discard(name string) {
	delete(s.pending, name)
}

// Names returns the names with pending text, sorted.
func (s *Session) Names() []string {
	out := make([]string, 0, len(s.pending))
	for name := range s.pending {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of pending entries.
func (s *Session) Len() int {
	return len(s.pending)
}

// Close drops every entry. The session cannot be reused.
func (s *Session) Close() {
	s.pending = make(map[string]string)
	s.closed = true
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed
}
