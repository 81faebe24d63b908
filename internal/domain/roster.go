package domain

import "strings"

// MaxNameBytes bounds the encoded length of a display name.
const MaxNameBytes = 128

// Role of a participant in a match.
type Role uint8

const (
	RoleSurvivor Role = iota
	RoleMonster
)

func (r Role) String() string {
	if r == RoleMonster {
		return "MONSTER"
	}
	return "SURVIVOR"
}

// ParseRole falls back to RoleSurvivor for anything it does not know.
func ParseRole(s string) Role {
	if strings.EqualFold(s, "MONSTER") {
		return RoleMonster
	}
	return RoleSurvivor
}

// RosterEntry is one connected participant as replicated to every observer.
type RosterEntry struct {
	ID    ParticipantID
	Role  Role
	Ready bool
	Name  string
	HP    int
	Alive bool
}

// NewRosterEntry returns the defaults for a freshly connected participant.
func NewRosterEntry(id ParticipantID, maxHP int) RosterEntry {
	return RosterEntry{
		ID:    id,
		Role:  RoleSurvivor,
		HP:    maxHP,
		Alive: true,
	}
}

// DisplayName renders the id when no name was chosen.
func (e RosterEntry) DisplayName() string {
	if e.Name == "" {
		return "Player " + e.ID.String()
	}
	return e.Name
}

// Equals compares by participant id only.
func (e RosterEntry) Equals(other RosterEntry) bool {
	return e.ID == other.ID
}

// ChangeKind is one of the four replicated roster mutations.
type ChangeKind uint8

const (
	ChangeAdd ChangeKind = iota + 1
	ChangeRemove
	ChangeInsert
	ChangeClear
)

var changeKindToString = map[ChangeKind]string{
	ChangeAdd:    "ADD",
	ChangeRemove: "REMOVE",
	ChangeInsert: "INSERT",
	ChangeClear:  "CLEAR",
}

func (k ChangeKind) String() string {
	if s, ok := changeKindToString[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseChangeKind returns 0 for unknown names.
func ParseChangeKind(s string) ChangeKind {
	upper := strings.ToUpper(s)
	for k, v := range changeKindToString {
		if v == upper {
			return k
		}
	}
	return 0
}

// RosterChange is a single replicated roster event.
// Seq increases by one per authoritative mutation. Synthetic changes
// belong to a join-time snapshot and all carry the snapshot's Seq.
type RosterChange struct {
	Seq       uint64
	Kind      ChangeKind
	Index     int
	Entry     RosterEntry
	Synthetic bool
}
