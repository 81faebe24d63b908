package roster

import (
	"fmt"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/api"
)

func EntryToView(e domain.RosterEntry) api.RosterEntryView {
	return api.RosterEntryView{
		ID:    uint64(e.ID),
		Role:  e.Role.String(),
		Ready: e.Ready,
		Name:  e.Name,
		HP:    e.HP,
		Alive: e.Alive,
	}
}

func EntryFromView(v api.RosterEntryView) domain.RosterEntry {
	return domain.RosterEntry{
		ID:    domain.ParticipantID(v.ID),
		Role:  domain.ParseRole(v.Role),
		Ready: v.Ready,
		Name:  v.Name,
		HP:    v.HP,
		Alive: v.Alive,
	}
}

// ChangeToView renders a change for a ROSTER frame.
func ChangeToView(c domain.RosterChange) api.RosterChangeView {
	return api.RosterChangeView{
		Seq:       c.Seq,
		Kind:      c.Kind.String(),
		Index:     c.Index,
		Entry:     EntryToView(c.Entry),
		Synthetic: c.Synthetic,
	}
}

// ChangeFromView parses a ROSTER frame. Unknown kinds are an error so the
// observer can resync instead of guessing.
func ChangeFromView(v api.RosterChangeView) (domain.RosterChange, error) {
	kind := domain.ParseChangeKind(v.Kind)
	if kind == 0 {
		return domain.RosterChange{}, fmt.Errorf("unknown roster change kind %q", v.Kind)
	}
	return domain.RosterChange{
		Seq:       v.Seq,
		Kind:      kind,
		Index:     v.Index,
		Entry:     EntryFromView(v.Entry),
		Synthetic: v.Synthetic,
	}, nil
}
