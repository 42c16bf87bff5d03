package api

import (
	"github.com/gofiber/fiber/v2"

	"realtychat/config"
)

// ConfigHandler exposes the non-secret model settings so the UI can show
// what it is talking to.
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

func (h *ConfigHandler) HandleGetConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"chatModel":  h.cfg.OpenAI.ChatModel,
		"embedModel": h.cfg.OpenAI.EmbedModel,
		"ttsModel":   h.cfg.OpenAI.TTSModel,
		"ttsVoice":   h.cfg.OpenAI.TTSVoice,
		"store":      h.cfg.Store.Type,
		"topK":       h.cfg.Search.TopK,
	})
}
