package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtychat/types"
)

func TestStoreHistoryUnknownSession(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.History("nobody"))
}

func TestStoreAppendAndHistory(t *testing.T) {
	s := NewStore()

	s.Append("abc", types.ChatTurn{User: "hi"})
	s.Append("abc",
		types.ChatTurn{Bot: "hello", Images: []string{"https://img.example/a.jpg"}},
		types.ChatTurn{User: "show me houses"},
	)

	history := s.History("abc")
	require.Len(t, history, 3)
	assert.Equal(t, "hi", history[0].User)
	assert.True(t, history[0].IsUser())
	assert.Equal(t, "hello", history[1].Bot)
	assert.False(t, history[1].IsUser())
	assert.Equal(t, []string{"https://img.example/a.jpg"}, history[1].Images)
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	s := NewStore()

	s.Append("one", types.ChatTurn{User: "first"})
	s.Append("two", types.ChatTurn{User: "second"})

	assert.Len(t, s.History("one"), 1)
	assert.Len(t, s.History("two"), 1)
	assert.Equal(t, "first", s.History("one")[0].User)
}

func TestStoreHistoryReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("abc", types.ChatTurn{User: "hi"})

	history := s.History("abc")
	history[0].User = "mutated"

	assert.Equal(t, "hi", s.History("abc")[0].User)
}

func TestStoreSpeechStatePerSession(t *testing.T) {
	s := NewStore()

	state, err := s.TriggerSpeech("abc", EventStartSpeaking)
	require.NoError(t, err)
	assert.Equal(t, StateSpeaking, state)

	assert.Equal(t, StateSpeaking, s.SpeechState("abc"))
	assert.Equal(t, StateIdle, s.SpeechState("other"))

	_, err = s.TriggerSpeech("abc", EventStartSpeaking)
	assert.Error(t, err)
}
