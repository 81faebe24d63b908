package intents

import (
	"encoding/json"
	"pillarhunt-server/internal/domain"
	"pillarhunt-server/internal/engine/handlers"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	id     domain.ParticipantID
	arg    interface{}
}

// recordingSession records calls and fails with err when set.
type recordingSession struct {
	calls []call
	err   error
}

func (s *recordingSession) record(method string, id domain.ParticipantID, arg interface{}) error {
	s.calls = append(s.calls, call{method, id, arg})
	return s.err
}

func (s *recordingSession) ToggleRole(id domain.ParticipantID) error {
	return s.record("role", id, nil)
}
func (s *recordingSession) ToggleReady(id domain.ParticipantID) error {
	return s.record("ready", id, nil)
}
func (s *recordingSession) ChangeName(id domain.ParticipantID, name string) error {
	return s.record("name", id, name)
}
func (s *recordingSession) RequestStart(id domain.ParticipantID) error {
	return s.record("start", id, nil)
}
func (s *recordingSession) BeginInteract(id domain.ParticipantID, objectiveID int) error {
	return s.record("begin", id, objectiveID)
}
func (s *recordingSession) EndInteract(id domain.ParticipantID, objectiveID int) error {
	return s.record("end", id, objectiveID)
}
func (s *recordingSession) Resync(id domain.ParticipantID) error {
	return s.record("sync", id, nil)
}
func (s *recordingSession) Hint(id domain.ParticipantID, from domain.Vec2) error {
	return s.record("hint", id, from)
}

func TestIntentsForwardToSession(t *testing.T) {
	tests := []struct {
		name    string
		handler handlers.HandlerFunc
		payload string
		want    call
	}{
		{"role", handlers.WithEmptyPayload(HandleRoleToggle), ``, call{"role", 4, nil}},
		{"ready", handlers.WithEmptyPayload(HandleReadyToggle), ``, call{"ready", 4, nil}},
		{"name", handlers.WithPayload(HandleNameChange), `{"name":"Ada"}`, call{"name", 4, "Ada"}},
		{"start", handlers.WithEmptyPayload(HandleStartGame), ``, call{"start", 4, nil}},
		{"begin", handlers.WithPayload(HandleBeginInteract), `{"objectiveId":2}`, call{"begin", 4, 2}},
		{"end", handlers.WithPayload(HandleEndInteract), `{"objectiveId":2}`, call{"end", 4, 2}},
		{"hint", handlers.WithPayload(HandleHint), `{"x":1,"z":-2}`, call{"hint", 4, domain.Vec2{X: 1, Z: -2}}},
		{"sync", handlers.WithEmptyPayload(HandleSync), ``, call{"sync", 4, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &recordingSession{}
			_, err := tt.handler(handlers.Context{Session: s, Actor: 4}, json.RawMessage(tt.payload))
			require.NoError(t, err)
			require.Len(t, s.calls, 1)
			assert.Equal(t, tt.want, s.calls[0])
		})
	}
}

func TestIntentsPassRejectionsThrough(t *testing.T) {
	s := &recordingSession{err: domain.ErrRoleTaken}
	_, err := handlers.WithEmptyPayload(HandleRoleToggle)(handlers.Context{Session: s, Actor: 1}, nil)
	assert.ErrorIs(t, err, domain.ErrRoleTaken)
	assert.True(t, domain.IsRejection(err))
}
