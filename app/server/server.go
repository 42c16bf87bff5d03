package server

import (
	"context"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"realtychat/app/agent"
	"realtychat/app/api"
	"realtychat/app/middleware"
	"realtychat/config"
	"realtychat/ingest"
	"realtychat/model"
	"realtychat/session"
	"realtychat/store"
)

// Server wires the process-wide collaborators once and owns the fiber app.
// Clients are constructed here and injected into the pipelines; nothing is
// rebuilt per request.
type Server struct {
	cfg    *config.Config
	app    *fiber.App
	logger zerolog.Logger

	closers []func()
}

func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	client := model.NewOpenAIClient(model.OpenAIConfig{
		BaseURL:    cfg.OpenAI.BaseURL,
		APIKey:     cfg.OpenAI.APIKey(),
		ChatModel:  cfg.OpenAI.ChatModel,
		EmbedModel: cfg.OpenAI.EmbedModel,
		TTSModel:   cfg.OpenAI.TTSModel,
		TTSVoice:   cfg.OpenAI.TTSVoice,
	})

	index, err := s.newIndexer(client)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore()
	pipeline := ingest.NewPipeline(client, index, cfg.Ingest.ChunkSize, logger)
	chat := agent.New(client, client, index, agent.Config{
		TopK:          cfg.Search.TopK,
		ContextBudget: cfg.Search.ContextBudget,
		RewriteTemp:   cfg.OpenAI.RewriteTemp,
		ReplyTemp:     cfg.OpenAI.ReplyTemp,
	}, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: api.ErrorHandler,
		BodyLimit:    32 * 1024 * 1024,
	})

	var (
		checkHandler  = api.NewCheckHandler()
		uploadHandler = api.NewUploadHandler(pipeline, logger)
		searchHandler = api.NewSearchHandler(chat, sessions, logger)
		speechHandler = api.NewSpeechHandler(client, sessions, logger)
		configHandler = api.NewConfigHandler(cfg)
		check         = app.Group("/check")
		apiv1         = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/upload", uploadHandler.HandleUpload)
	apiv1.Post("/search", searchHandler.HandleSearch)
	apiv1.Post("/tts", speechHandler.HandleSynthesize)
	apiv1.Post("/speech/state", speechHandler.HandleEvent)
	apiv1.Get("/config", configHandler.HandleGetConfig)

	if dir := cfg.Server.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			app.Use(middleware.PlugStatic("/"))
			app.Static("/", dir)
		}
	}

	s.app = app
	return s, nil
}

func (s *Server) newIndexer(client *model.OpenAIClient) (store.Indexer, error) {
	switch s.cfg.Store.Type {
	case "qdrant":
		return store.NewQdrantStore(store.QdrantConfig{
			URL:        s.cfg.Store.Qdrant.URL,
			APIKey:     s.cfg.Store.Qdrant.APIKey,
			Collection: s.cfg.Store.Qdrant.Collection,
		}, s.logger), nil
	case "postgres":
		pg, err := store.NewPostgresStore(context.Background(), s.cfg.Store.Postgres.ConnString, s.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		return pg, nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", s.cfg.Store.Type)
	}
}

// Run blocks serving requests until Stop is called.
func (s *Server) Run() error {
	s.logger.Info().Str("addr", s.cfg.Server.Addr).Str("store", s.cfg.Store.Type).Msg("server listening")
	return s.app.Listen(s.cfg.Server.Addr)
}

// Stop shuts the listener down and releases held connections.
func (s *Server) Stop() {
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error().Err(err).Msg("server shutdown")
	}
	for _, close := range s.closers {
		close()
	}
	s.logger.Info().Msg("server stopped")
}
