package intents

import (
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine/handlers"
	"pillarhunt-server/pkg/api"
)

// HandleBeginInteract: { "objectiveId": 3 }
func HandleBeginInteract(ctx handlers.Context, p api.ObjectivePayload) (handlers.Result, error) {
	return handlers.EmptyResult(), ctx.Session.BeginInteract(ctx.Actor, p.ObjectiveID)
}

// HandleEndInteract: { "objectiveId": 3 }
func HandleEndInteract(ctx handlers.Context, p api.ObjectivePayload) (handlers.Result, error) {
	return handlers.EmptyResult(), ctx.Session.EndInteract(ctx.Actor, p.ObjectiveID)
}

// HandleHint: { "x": 1.5, "z": -4 }
func HandleHint(ctx handlers.Context, p api.PositionPayload) (handlers.Result, error) {
	return handlers.EmptyResult(), ctx.Session.Hint(ctx.Actor, domain.Vec2{X: p.X, Z: p.Z})
}

// HandleSync resends the full snapshot to an observer that lost track.
func HandleSync(ctx handlers.Context) (handlers.Result, error) {
	if err := ctx.Session.Resync(ctx.Actor); err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Result{Msg: "resync sent"}, nil
}
