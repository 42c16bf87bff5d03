package session

import "fmt"

// SpeechState models the playback side of a chat session. The browser speech
// APIs are callback-driven; the transitions here give that orchestration an
// explicit shape independent of any concurrency primitive.
type SpeechState string

const (
	StateIdle      SpeechState = "idle"
	StateListening SpeechState = "listening"
	StateSpeaking  SpeechState = "speaking"
	StatePaused    SpeechState = "paused"
)

// SpeechEvent triggers a transition of the speech machine.
type SpeechEvent string

const (
	EventStartListening  SpeechEvent = "start-listening"
	EventTranscriptFinal SpeechEvent = "transcript-final"
	EventStartSpeaking   SpeechEvent = "start-speaking"
	EventPause           SpeechEvent = "pause"
	EventResume          SpeechEvent = "resume"
	EventStop            SpeechEvent = "stop"
)

var speechTransitions = map[SpeechState]map[SpeechEvent]SpeechState{
	StateIdle: {
		EventStartListening: StateListening,
		EventStartSpeaking:  StateSpeaking,
	},
	StateListening: {
		EventTranscriptFinal: StateIdle,
		EventStop:            StateIdle,
	},
	StateSpeaking: {
		EventPause: StatePaused,
		EventStop:  StateIdle,
	},
	StatePaused: {
		EventResume: StateSpeaking,
		EventStop:   StateIdle,
	},
}

// ParseSpeechEvent validates an event name arriving over the wire.
func ParseSpeechEvent(s string) (SpeechEvent, error) {
	switch SpeechEvent(s) {
	case EventStartListening, EventTranscriptFinal, EventStartSpeaking, EventPause, EventResume, EventStop:
		return SpeechEvent(s), nil
	}
	return "", fmt.Errorf("unknown speech event %q", s)
}

// SpeechMachine holds the current playback state of one session. It is not
// safe for concurrent use on its own; the owning session serializes access.
type SpeechMachine struct {
	state SpeechState
}

func NewSpeechMachine() *SpeechMachine {
	return &SpeechMachine{state: StateIdle}
}

func (m *SpeechMachine) State() SpeechState {
	return m.state
}

// Trigger applies an event and returns the new state. Events that are not
// legal in the current state are rejected and leave the state unchanged.
func (m *SpeechMachine) Trigger(event SpeechEvent) (SpeechState, error) {
	next, ok := speechTransitions[m.state][event]
	if !ok {
		return m.state, fmt.Errorf("event %s not allowed in state %s", event, m.state)
	}
	m.state = next
	return next, nil
}
