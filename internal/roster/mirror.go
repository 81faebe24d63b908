package roster

import (
	"errors"
	"fmt"
	"pillarhunt-server/internal/domain"
)

var (
	// ErrSequenceGap means a change was lost or reordered. The observer must resync.
	ErrSequenceGap = errors.New("roster change out of sequence")
	// ErrNotSynced means no snapshot has been applied yet.
	ErrNotSynced = errors.New("roster mirror has no snapshot")
)

// Row is one line of the visible player list.
type Row struct {
	ID    domain.ParticipantID
	Label string
	Role  domain.Role
	Ready bool
	Alive bool
}

func rowFor(e domain.RosterEntry) Row {
	return Row{
		ID:    e.ID,
		Label: e.DisplayName(),
		Role:  e.Role,
		Ready: e.Ready,
		Alive: e.Alive,
	}
}

// Mirror is an observer's replica. It is not safe for concurrent use.
//
// Rows are patched in place on Add and Remove. An Insert rebuilds every row
// from the mirrored list, because the Remove preceding it shifted indices.
type Mirror struct {
	entries []domain.RosterEntry
	rows    []Row

	lastSeq  uint64
	synced   bool
	rebuilds int
}

func NewMirror() *Mirror {
	return &Mirror{}
}

// Apply folds one replicated change into the mirror.
func (m *Mirror) Apply(c domain.RosterChange) error {
	if c.Synthetic {
		if c.Kind == domain.ChangeClear {
			m.reset()
			m.lastSeq = c.Seq
			m.synced = true
			return nil
		}
		if !m.synced || c.Seq != m.lastSeq {
			return fmt.Errorf("synthetic %s at seq %d (mirror at %d): %w", c.Kind, c.Seq, m.lastSeq, ErrSequenceGap)
		}
	} else {
		if !m.synced {
			return ErrNotSynced
		}
		if c.Seq != m.lastSeq+1 {
			return fmt.Errorf("got seq %d, want %d: %w", c.Seq, m.lastSeq+1, ErrSequenceGap)
		}
		m.lastSeq = c.Seq
	}

	switch c.Kind {
	case domain.ChangeAdd:
		if m.indexOf(c.Entry.ID) >= 0 {
			return fmt.Errorf("add of known participant %s: %w", c.Entry.ID, domain.ErrDuplicateParticipant)
		}
		m.entries = append(m.entries, c.Entry)
		m.rows = append(m.rows, rowFor(c.Entry))

	case domain.ChangeRemove:
		if idx := m.indexOf(c.Entry.ID); idx >= 0 {
			m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
		}
		for i, r := range m.rows {
			if r.ID == c.Entry.ID {
				m.rows = append(m.rows[:i], m.rows[i+1:]...)
				break
			}
		}

	case domain.ChangeInsert:
		idx := c.Index
		if idx < 0 {
			idx = 0
		}
		if idx > len(m.entries) {
			idx = len(m.entries)
		}
		m.entries = append(m.entries, domain.RosterEntry{})
		copy(m.entries[idx+1:], m.entries[idx:])
		m.entries[idx] = c.Entry
		m.rebuild()

	case domain.ChangeClear:
		m.reset()
	}
	return nil
}

func (m *Mirror) reset() {
	m.entries = m.entries[:0]
	m.rows = m.rows[:0]
}

func (m *Mirror) rebuild() {
	m.rows = m.rows[:0]
	for _, e := range m.entries {
		m.rows = append(m.rows, rowFor(e))
	}
	m.rebuilds++
}

func (m *Mirror) indexOf(id domain.ParticipantID) int {
	for i, e := range m.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Entries returns a copy of the mirrored list.
func (m *Mirror) Entries() []domain.RosterEntry {
	out := make([]domain.RosterEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Rows returns a copy of the visible projection.
func (m *Mirror) Rows() []Row {
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}

func (m *Mirror) Get(id domain.ParticipantID) (domain.RosterEntry, bool) {
	idx := m.indexOf(id)
	if idx < 0 {
		return domain.RosterEntry{}, false
	}
	return m.entries[idx], true
}

func (m *Mirror) Seq() uint64   { return m.lastSeq }
func (m *Mirror) Synced() bool  { return m.synced }
func (m *Mirror) Rebuilds() int { return m.rebuilds }
func (m *Mirror) Len() int      { return len(m.entries) }
