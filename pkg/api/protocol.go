package api

import (
	"encoding/json"
)

// --- SERVER -> CLIENT ---

// Frame types.
const (
	// TypeWelcome is the first frame of an accepted connection.
	TypeWelcome = "WELCOME"
	// TypeRejected carries the reason a connection was refused. The socket closes after it.
	TypeRejected = "REJECTED"
	// TypeSync answers a SYNC intent. Synthetic roster frames follow it.
	TypeSync = "SYNC"
	// TypeRoster is one replicated roster change.
	TypeRoster = "ROSTER"
	// TypeEvent is a presentation event.
	TypeEvent = "EVENT"
	// TypeShutdown tells every participant the host is going away.
	TypeShutdown = "SHUTDOWN"
)

// ServerMessage is the root object the host sends downstream.
// Only the fields relevant to Type are set.
type ServerMessage struct {
	Type string `json:"type" msgpack:"type"`

	// Session identifies the host session. Set on WELCOME.
	Session string `json:"session,omitempty" msgpack:"session,omitempty"`

	// YourID is the participant id the host assigned to this connection.
	YourID uint64 `json:"yourId,omitempty" msgpack:"yourId,omitempty"`

	// Reason is set on REJECTED and SHUTDOWN.
	Reason string `json:"reason,omitempty" msgpack:"reason,omitempty"`

	Roster   *RosterChangeView `json:"roster,omitempty" msgpack:"roster,omitempty"`
	Event    *EventView        `json:"event,omitempty" msgpack:"event,omitempty"`
	Snapshot *SessionView      `json:"snapshot,omitempty" msgpack:"snapshot,omitempty"`
}

// RosterEntryView is the wire form of a roster entry.
type RosterEntryView struct {
	ID    uint64 `json:"id" msgpack:"id"`
	Role  string `json:"role" msgpack:"role"` // SURVIVOR, MONSTER
	Ready bool   `json:"ready" msgpack:"ready"`
	Name  string `json:"name" msgpack:"name"`
	HP    int    `json:"hp" msgpack:"hp"`
	Alive bool   `json:"alive" msgpack:"alive"`
}

// RosterChangeView is one of ADD, REMOVE, INSERT, CLEAR.
// Observers must apply them strictly in Seq order.
type RosterChangeView struct {
	Seq       uint64          `json:"seq" msgpack:"seq"`
	Kind      string          `json:"kind" msgpack:"kind"`
	Index     int             `json:"index" msgpack:"index"`
	Entry     RosterEntryView `json:"entry" msgpack:"entry"`
	Synthetic bool            `json:"synthetic,omitempty" msgpack:"synthetic,omitempty"`
}

// EventView is the wire form of a presentation event.
type EventView struct {
	Kind        string `json:"kind" msgpack:"kind"`
	Participant uint64 `json:"participant,omitempty" msgpack:"participant,omitempty"`

	Role     string `json:"role,omitempty" msgpack:"role,omitempty"`
	Accepted bool   `json:"accepted,omitempty" msgpack:"accepted,omitempty"`
	AllReady bool   `json:"allReady,omitempty" msgpack:"allReady,omitempty"`
	Action   string `json:"action,omitempty" msgpack:"action,omitempty"`
	Reason   string `json:"reason,omitempty" msgpack:"reason,omitempty"`

	Remaining   int     `json:"remaining,omitempty" msgpack:"remaining,omitempty"`
	ObjectiveID int     `json:"objectiveId,omitempty" msgpack:"objectiveId,omitempty"`
	Progress    float64 `json:"progress,omitempty" msgpack:"progress,omitempty"`
	Phase       string  `json:"phase,omitempty" msgpack:"phase,omitempty"`
	HP          int     `json:"hp,omitempty" msgpack:"hp,omitempty"`

	AdversaryState string  `json:"adversaryState,omitempty" msgpack:"adversaryState,omitempty"`
	X              float64 `json:"x,omitempty" msgpack:"x,omitempty"`
	Z              float64 `json:"z,omitempty" msgpack:"z,omitempty"`

	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
	Outcome string `json:"outcome,omitempty" msgpack:"outcome,omitempty"`
}

// SessionView is a read-only picture of the session for WELCOME, SYNC and debugging.
type SessionView struct {
	Session    string `json:"session" msgpack:"session"`
	Phase      string `json:"phase" msgpack:"phase"`
	GamePhase  string `json:"gamePhase" msgpack:"gamePhase"`
	Outcome    string `json:"outcome" msgpack:"outcome"`
	MaxPlayers int    `json:"maxPlayers" msgpack:"maxPlayers"`
	AllReady   bool   `json:"allReady" msgpack:"allReady"`
	RosterSeq  uint64 `json:"rosterSeq" msgpack:"rosterSeq"`

	Collected  int `json:"collected" msgpack:"collected"`
	Objectives int `json:"objectives" msgpack:"objectives"`
	Alive      int `json:"alive" msgpack:"alive"`

	Pillars   []ObjectiveView   `json:"pillars" msgpack:"pillars"`
	Adversary *AdversaryView    `json:"adversary,omitempty" msgpack:"adversary,omitempty"`
	Roster    []RosterEntryView `json:"roster" msgpack:"roster"`
}

// ObjectiveView is one pillar.
type ObjectiveView struct {
	ID           int     `json:"id" msgpack:"id"`
	X            float64 `json:"x" msgpack:"x"`
	Z            float64 `json:"z" msgpack:"z"`
	Progress     float64 `json:"progress" msgpack:"progress"` // 0..1
	Contributors int     `json:"contributors" msgpack:"contributors"`
	Collected    bool    `json:"collected" msgpack:"collected"`
}

// AdversaryView is the AI monster as observers see it.
type AdversaryView struct {
	State   string  `json:"state" msgpack:"state"`
	X       float64 `json:"x" msgpack:"x"`
	Z       float64 `json:"z" msgpack:"z"`
	Hunting bool    `json:"hunting" msgpack:"hunting"`
}

// --- CLIENT -> SERVER ---

// ClientCommand is an intent. Upstream frames are always JSON.
type ClientCommand struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload opens a connection: { "name": "Ada" }
type HelloPayload struct {
	Name string `json:"name,omitempty"`
}

// NamePayload: { "name": "Ada" }
type NamePayload struct {
	Name string `json:"name"`
}

// ObjectivePayload: { "objectiveId": 3 }
type ObjectivePayload struct {
	ObjectiveID int `json:"objectiveId"`
}

// PositionPayload: { "x": 1.5, "z": -4 }
type PositionPayload struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}
