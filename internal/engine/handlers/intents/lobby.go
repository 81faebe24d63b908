package intents

import (
	"fmt"
	"pillarhunt-server/internal/engine/handlers"
	"pillarhunt-server/pkg/api"
)

func HandleRoleToggle(ctx handlers.Context) (handlers.Result, error) {
	if err := ctx.Session.ToggleRole(ctx.Actor); err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Result{Msg: "role toggled"}, nil
}

func HandleReadyToggle(ctx handlers.Context) (handlers.Result, error) {
	if err := ctx.Session.ToggleReady(ctx.Actor); err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Result{Msg: "ready toggled"}, nil
}

// HandleNameChange applies a new display name. An empty name clears it.
func HandleNameChange(ctx handlers.Context, p api.NamePayload) (handlers.Result, error) {
	if err := ctx.Session.ChangeName(ctx.Actor, p.Name); err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Result{Msg: fmt.Sprintf("name set to %q", p.Name)}, nil
}

func HandleStartGame(ctx handlers.Context) (handlers.Result, error) {
	if err := ctx.Session.RequestStart(ctx.Actor); err != nil {
		return handlers.EmptyResult(), err
	}
	return handlers.Result{Msg: "game started"}, nil
}
