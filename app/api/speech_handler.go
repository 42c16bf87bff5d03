package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"realtychat/model"
	"realtychat/session"
	"realtychat/types"
)

// SpeechHandler serves audio generation for a reply and the per-session
// playback state machine the UI drives while listening and speaking.
type SpeechHandler struct {
	speaker  model.Speaker
	sessions *session.Store
	logger   zerolog.Logger
}

func NewSpeechHandler(speaker model.Speaker, sessions *session.Store, logger zerolog.Logger) *SpeechHandler {
	return &SpeechHandler{
		speaker:  speaker,
		sessions: sessions,
		logger:   logger.With().Str("handler", "speech").Logger(),
	}
}

func (h *SpeechHandler) HandleSynthesize(c *fiber.Ctx) error {
	var params types.SpeechParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest("Missing text field")
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return ErrBadRequest("Missing text field")
	}

	audio, err := h.speaker.Speak(c.Context(), params.Text)
	if err != nil {
		h.logger.Error().Err(err).Msg("speech synthesis failed")
		return ErrInternal("TTS synthesis failed")
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Send(audio)
}

// HandleEvent applies a playback event to the session's speech machine and
// reports the resulting state. Illegal transitions are client errors.
func (h *SpeechHandler) HandleEvent(c *fiber.Ctx) error {
	var params types.SpeechEventParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest("Missing sessionId or event")
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return ErrBadRequest("Missing sessionId or event")
	}

	event, err := session.ParseSpeechEvent(params.Event)
	if err != nil {
		return ErrBadRequest(err.Error())
	}

	state, err := h.sessions.TriggerSpeech(params.SessionID, event)
	if err != nil {
		return ErrBadRequest(err.Error())
	}
	return c.JSON(types.SpeechStateResponse{State: string(state)})
}
