package session

import (
	"sync"

	"realtychat/types"
)

// Session is one client's conversation: an append-only transcript and the
// speech playback machine. Lifetime is the chat session, nothing is
// persisted.
type Session struct {
	turns  []types.ChatTurn
	speech *SpeechMachine
}

// Store keeps sessions in memory keyed by the client-chosen session id.
// Turns within one session are assumed sequential; the store only guards
// access across different sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (s *Store) get(id string) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{speech: NewSpeechMachine()}
		s.sessions[id] = sess
	}
	return sess
}

// History returns a copy of the transcript for the given session. An unknown
// id yields an empty history, not an error.
func (s *Store) History(id string) []types.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	out := make([]types.ChatTurn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Append adds turns to the session transcript, creating the session when it
// does not exist yet.
func (s *Store) Append(id string, turns ...types.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.get(id)
	sess.turns = append(sess.turns, turns...)
}

// SpeechState reports the session's current playback state.
func (s *Store) SpeechState(id string) SpeechState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id).speech.State()
}

// TriggerSpeech applies a playback event to the session's speech machine.
func (s *Store) TriggerSpeech(id string, event SpeechEvent) (SpeechState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id).speech.Trigger(event)
}
