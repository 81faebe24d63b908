package domain

import "strings"

// EventKind is the internal numeric id of a presentation event.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventClientConnected
	EventClientFailedToJoin
	EventHostStarted
	EventRoleToggled
	EventRoleFreed
	EventAllReadyToggled
	EventNameChangeResult
	EventIntentRejected
	EventGameStarted
	EventObjectiveProgress
	EventObjectiveCollected
	EventPhaseChanged
	EventAdversaryState
	EventPlayerDamaged
	EventPlayerKilled
	EventGameOver
	EventReturnedToLobby
	EventHint
	EventHostDisconnected
)

var eventStringToKind = map[string]EventKind{
	"CLIENT_CONNECTED":      EventClientConnected,
	"CLIENT_FAILED_TO_JOIN": EventClientFailedToJoin,
	"HOST_STARTED":          EventHostStarted,
	"ROLE_TOGGLED":          EventRoleToggled,
	"ROLE_FREED":            EventRoleFreed,
	"ALL_READY_TOGGLED":     EventAllReadyToggled,
	"NAME_CHANGE_RESULT":    EventNameChangeResult,
	"INTENT_REJECTED":       EventIntentRejected,
	"GAME_STARTED":          EventGameStarted,
	"OBJECTIVE_PROGRESS":    EventObjectiveProgress,
	"OBJECTIVE_COLLECTED":   EventObjectiveCollected,
	"PHASE_CHANGED":         EventPhaseChanged,
	"ADVERSARY_STATE":       EventAdversaryState,
	"PLAYER_DAMAGED":        EventPlayerDamaged,
	"PLAYER_KILLED":         EventPlayerKilled,
	"GAME_OVER":             EventGameOver,
	"RETURNED_TO_LOBBY":     EventReturnedToLobby,
	"HINT":                  EventHint,
	"HOST_DISCONNECTED":     EventHostDisconnected,
}

var eventKindToString = make(map[EventKind]string, len(eventStringToKind))

func init() {
	for s, k := range eventStringToKind {
		eventKindToString[k] = s
	}
}

// ParseEvent converts a wire event name into an EventKind.
func ParseEvent(s string) EventKind {
	upper := strings.ToUpper(s)
	if val, ok := eventStringToKind[upper]; ok {
		return val
	}
	return EventUnknown
}

func (k EventKind) String() string {
	if val, ok := eventKindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}

// Scope says who an event is meant for.
type Scope uint8

const (
	// ScopeBroadcast goes to every participant.
	ScopeBroadcast Scope = iota
	// ScopeDirect goes only to Event.Participant.
	ScopeDirect
	// ScopeLocal never leaves the process that raised it.
	ScopeLocal
)

// Scope returns the delivery scope of the event kind.
func (k EventKind) Scope() Scope {
	switch k {
	case EventNameChangeResult, EventIntentRejected, EventHint:
		return ScopeDirect
	case EventHostStarted, EventClientFailedToJoin, EventHostDisconnected:
		return ScopeLocal
	}
	return ScopeBroadcast
}

// Event is a notification for the presentation layer.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind        EventKind
	Participant ParticipantID

	Role     Role
	Accepted bool
	AllReady bool
	Action   ActionType
	Reason   string

	Remaining   int
	ObjectiveID int
	Progress    float64
	Phase       GamePhase
	HP          int

	AdversaryState string
	Position       Vec2

	Message string
	Outcome Outcome
	Address string
}
