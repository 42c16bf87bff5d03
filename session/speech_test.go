package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechMachineStartsIdle(t *testing.T) {
	m := NewSpeechMachine()
	assert.Equal(t, StateIdle, m.State())
}

func TestSpeechMachineListeningRoundTrip(t *testing.T) {
	m := NewSpeechMachine()

	state, err := m.Trigger(EventStartListening)
	require.NoError(t, err)
	assert.Equal(t, StateListening, state)

	state, err = m.Trigger(EventTranscriptFinal)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
}

func TestSpeechMachinePauseResume(t *testing.T) {
	m := NewSpeechMachine()

	_, err := m.Trigger(EventStartSpeaking)
	require.NoError(t, err)

	state, err := m.Trigger(EventPause)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, state)

	state, err = m.Trigger(EventResume)
	require.NoError(t, err)
	assert.Equal(t, StateSpeaking, state)

	state, err = m.Trigger(EventStop)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
}

func TestSpeechMachineRejectsIllegalTransitions(t *testing.T) {
	cases := []struct {
		from  []SpeechEvent
		event SpeechEvent
	}{
		{nil, EventPause},                             // idle cannot pause
		{nil, EventResume},                            // idle cannot resume
		{[]SpeechEvent{EventStartListening}, EventStartSpeaking}, // listening cannot speak
		{[]SpeechEvent{EventStartSpeaking}, EventStartListening}, // speaking cannot listen
	}
	for _, tc := range cases {
		m := NewSpeechMachine()
		for _, e := range tc.from {
			_, err := m.Trigger(e)
			require.NoError(t, err)
		}
		before := m.State()

		_, err := m.Trigger(tc.event)

		assert.Error(t, err)
		assert.Equal(t, before, m.State(), "state must not change on a rejected event")
	}
}

func TestParseSpeechEvent(t *testing.T) {
	event, err := ParseSpeechEvent("start-speaking")
	require.NoError(t, err)
	assert.Equal(t, EventStartSpeaking, event)

	_, err = ParseSpeechEvent("jump")
	assert.Error(t, err)
}
