package handlers

import (
	"encoding/json"
	"fmt"
	"pillarhunt-server/pkg/api"
)

// TypedHandlerFunc works on an already decoded payload T.
type TypedHandlerFunc[T any] func(ctx Context, payload T) (Result, error)

// EmptyHandlerFunc is for intents without data (READY_TOGGLE, SYNC).
type EmptyHandlerFunc func(ctx Context) (Result, error)

// WithPayload turns a typed handler into a HandlerFunc.
// It owns decoding and validation.
func WithPayload[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx Context, raw json.RawMessage) (Result, error) {
		var payload T

		// 1. Decode
		if len(raw) == 0 {
			return Result{}, fmt.Errorf("missing payload")
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Result{}, fmt.Errorf("invalid payload format: %w", err)
		}

		// 2. Validate, when T knows how
		if v, ok := any(payload).(api.Validator); ok {
			if err := v.Validate(); err != nil {
				return Result{}, fmt.Errorf("validation failed: %w", err)
			}
		}

		// 3. Domain logic
		return handler(ctx, payload)
	}
}

// WithEmptyPayload ignores whatever payload came along.
func WithEmptyPayload(handler EmptyHandlerFunc) HandlerFunc {
	return func(ctx Context, _ json.RawMessage) (Result, error) {
		return handler(ctx)
	}
}
