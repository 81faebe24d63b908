package core

import (
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/pkg/api"
)

// EventToView renders a domain event for an EVENT frame.
func EventToView(ev domain.Event) api.EventView {
	v := api.EventView{
		Kind:           ev.Kind.String(),
		Participant:    uint64(ev.Participant),
		Accepted:       ev.Accepted,
		AllReady:       ev.AllReady,
		Reason:         ev.Reason,
		Remaining:      ev.Remaining,
		ObjectiveID:    ev.ObjectiveID,
		Progress:       ev.Progress,
		HP:             ev.HP,
		AdversaryState: ev.AdversaryState,
		X:              ev.Position.X,
		Z:              ev.Position.Z,
		Message:        ev.Message,
	}
	switch ev.Kind {
	case domain.EventRoleToggled, domain.EventRoleFreed:
		v.Role = ev.Role.String()
	case domain.EventIntentRejected:
		v.Action = ev.Action.String()
	case domain.EventPhaseChanged:
		v.Phase = ev.Phase.String()
	case domain.EventGameOver:
		v.Outcome = ev.Outcome.String()
	}
	return v
}

// EventFromView is the inverse of EventToView. Unknown kinds come back
// as EventUnknown.
func EventFromView(v api.EventView) domain.Event {
	ev := domain.Event{
		Kind:           domain.ParseEvent(v.Kind),
		Participant:    domain.ParticipantID(v.Participant),
		Accepted:       v.Accepted,
		AllReady:       v.AllReady,
		Reason:         v.Reason,
		Remaining:      v.Remaining,
		ObjectiveID:    v.ObjectiveID,
		Progress:       v.Progress,
		HP:             v.HP,
		AdversaryState: v.AdversaryState,
		Position:       domain.Vec2{X: v.X, Z: v.Z},
		Message:        v.Message,
	}
	if v.Role != "" {
		ev.Role = domain.ParseRole(v.Role)
	}
	if v.Action != "" {
		ev.Action = domain.ParseAction(v.Action)
	}
	if v.Phase != "" {
		ev.Phase = domain.ParseGamePhase(v.Phase)
	}
	if v.Outcome != "" {
		ev.Outcome = domain.ParseOutcome(v.Outcome)
	}
	return ev
}
