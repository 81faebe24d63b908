// Package roster holds the ordered participant list and its replication.
//
// Store is the authoritative copy owned by the session actor. Mirror is what
// an observer rebuilds from the replicated change stream.
package roster

import (
	"fmt"
	"pillarhunt-server/internal/domain"
	"unicode"
	"unicode/utf8"
)

// Listener receives every change the store emits, in order.
type Listener func(domain.RosterChange)

type subscription struct {
	id int
	fn Listener
}

// Store is not safe for concurrent use. The session actor owns it.
type Store struct {
	entries []domain.RosterEntry
	seq     uint64
	ready   int

	listeners      []subscription
	nextListenerID int
}

func NewStore() *Store {
	return &Store{
		entries: make([]domain.RosterEntry, 0, 8),
	}
}

// Subscribe registers l and returns the matching unsubscribe func.
func (s *Store) Subscribe(l Listener) func() {
	s.nextListenerID++
	id := s.nextListenerID
	s.listeners = append(s.listeners, subscription{id: id, fn: l})

	return func() {
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) emit(kind domain.ChangeKind, index int, entry domain.RosterEntry) {
	s.seq++
	change := domain.RosterChange{
		Seq:   s.seq,
		Kind:  kind,
		Index: index,
		Entry: entry,
	}
	for _, sub := range s.listeners {
		sub.fn(change)
	}
}

// Add appends a new participant.
func (s *Store) Add(e domain.RosterEntry) error {
	if s.IndexOf(e.ID) >= 0 {
		return fmt.Errorf("add %s: %w", e.ID, domain.ErrDuplicateParticipant)
	}
	if err := s.validate(e, -1); err != nil {
		return fmt.Errorf("add %s: %w", e.ID, err)
	}

	s.entries = append(s.entries, e)
	if e.Ready {
		s.ready++
	}
	s.emit(domain.ChangeAdd, len(s.entries)-1, e)
	return nil
}

// Remove deletes a participant and reports where it was.
func (s *Store) Remove(id domain.ParticipantID) (domain.RosterEntry, int, bool) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return domain.RosterEntry{}, -1, false
	}
	removed := s.removeAt(idx)
	s.emit(domain.ChangeRemove, idx, removed)
	return removed, idx, true
}

func (s *Store) removeAt(idx int) domain.RosterEntry {
	removed := s.entries[idx]
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	if removed.Ready {
		s.ready--
	}
	return removed
}

// Modify applies fn to a copy of the entry and, when the result is valid,
// replicates it as Remove followed by Insert at the same index.
// The participant id cannot be changed.
func (s *Store) Modify(id domain.ParticipantID, fn func(*domain.RosterEntry)) (domain.RosterEntry, error) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return domain.RosterEntry{}, fmt.Errorf("modify %s: %w", id, domain.ErrNotParticipant)
	}

	updated := s.entries[idx]
	fn(&updated)
	updated.ID = id

	if err := s.validate(updated, idx); err != nil {
		return s.entries[idx], err
	}
	if updated == s.entries[idx] {
		return updated, nil
	}

	old := s.removeAt(idx)
	s.emit(domain.ChangeRemove, idx, old)

	s.entries = append(s.entries, domain.RosterEntry{})
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = updated
	if updated.Ready {
		s.ready++
	}
	s.emit(domain.ChangeInsert, idx, updated)

	return updated, nil
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.entries = s.entries[:0]
	s.ready = 0
	s.emit(domain.ChangeClear, 0, domain.RosterEntry{})
}

// validate checks candidate against everybody except the entry at skip.
func (s *Store) validate(candidate domain.RosterEntry, skip int) error {
	if err := ValidateName(candidate.Name); err != nil {
		return err
	}
	for i, e := range s.entries {
		if i == skip {
			continue
		}
		if candidate.Role == domain.RoleMonster && e.Role == domain.RoleMonster {
			return domain.ErrRoleTaken
		}
		if candidate.Name != "" && e.Name == candidate.Name {
			return domain.ErrNameTaken
		}
	}
	return nil
}

// ValidateName enforces the display-name bounds. Empty is allowed.
func ValidateName(name string) error {
	if len(name) > domain.MaxNameBytes {
		return domain.ErrNameTooLong
	}
	if !utf8.ValidString(name) {
		return domain.ErrNameInvalid
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return domain.ErrNameInvalid
		}
	}
	return nil
}

func (s *Store) IndexOf(id domain.ParticipantID) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Get(id domain.ParticipantID) (domain.RosterEntry, bool) {
	idx := s.IndexOf(id)
	if idx < 0 {
		return domain.RosterEntry{}, false
	}
	return s.entries[idx], true
}

// At returns the entry at display position i.
func (s *Store) At(i int) (domain.RosterEntry, bool) {
	if i < 0 || i >= len(s.entries) {
		return domain.RosterEntry{}, false
	}
	return s.entries[i], true
}

func (s *Store) Len() int { return len(s.entries) }

// ReadyCount is maintained incrementally on every mutation.
func (s *Store) ReadyCount() int { return s.ready }

// Seq is the sequence number of the last emitted change.
func (s *Store) Seq() uint64 { return s.seq }

// MonsterID returns the participant holding the monster role, if any.
func (s *Store) MonsterID() (domain.ParticipantID, bool) {
	for _, e := range s.entries {
		if e.Role == domain.RoleMonster {
			return e.ID, true
		}
	}
	return 0, false
}

// Snapshot returns a copy of the entries in display order.
func (s *Store) Snapshot() []domain.RosterEntry {
	out := make([]domain.RosterEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SnapshotChanges renders the current roster as a synthetic Clear followed by
// one synthetic Add per entry. A late joiner applies these before any
// incremental change with a higher Seq.
func (s *Store) SnapshotChanges() []domain.RosterChange {
	out := make([]domain.RosterChange, 0, len(s.entries)+1)
	out = append(out, domain.RosterChange{Seq: s.seq, Kind: domain.ChangeClear, Synthetic: true})
	for i, e := range s.entries {
		out = append(out, domain.RosterChange{
			Seq:       s.seq,
			Kind:      domain.ChangeAdd,
			Index:     i,
			Entry:     e,
			Synthetic: true,
		})
	}
	return out
}
