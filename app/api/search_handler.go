package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"realtychat/app/agent"
	"realtychat/session"
	"realtychat/types"
)

// SearchHandler serves the query endpoint. Per the pipeline contract every
// collaborator failure surfaces as one generic internal error; the failing
// stage is only logged.
type SearchHandler struct {
	agent    *agent.Agent
	sessions *session.Store
	logger   zerolog.Logger
}

func NewSearchHandler(a *agent.Agent, sessions *session.Store, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{
		agent:    a,
		sessions: sessions,
		logger:   logger.With().Str("handler", "search").Logger(),
	}
}

func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var params types.SearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest("Missing userText")
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return ErrBadRequest("Missing userText")
	}

	history := params.History
	if history == nil && params.SessionID != "" {
		history = h.sessions.History(params.SessionID)
	}

	reply, err := h.agent.Answer(c.Context(), params.UserText, history)
	if err != nil {
		h.logger.Error().Err(err).Msg("query pipeline failed")
		return ErrInternal("Internal error")
	}

	if params.SessionID != "" {
		h.sessions.Append(params.SessionID,
			types.ChatTurn{User: params.UserText},
			types.ChatTurn{Bot: reply.Text, Images: reply.Images},
		)
	}

	return c.JSON(types.SearchResponse{
		Reply:   reply.Text,
		Images:  reply.Images,
		Matches: reply.Matches,
	})
}
