package server

import (
	"context"
	"log"
	"log/slog"

	"docqa/answer"
	"docqa/app/api"
	"docqa/model"
	"docqa/retriever"
	"docqa/store"
	"docqa/types"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

const systemPrompt = `You are an assistant answering questions about a private document collection.
Answer clearly and to the point, without adding any additional information.
Don't add introductions like 'Of course!' or 'Here's the answer:'`

type Server struct {
	cfg    types.Config
	logger *slog.Logger
}

func NewServer(cfg types.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()
	pool, err := store.NewPostgresStore(ctx, s.cfg.PGConnStr())
	if err != nil {
		log.Fatal("error to connect to Postgres database: ", err)
	}

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables: ", err)
	}

	embedder, err := model.NewEmbedder(s.cfg)
	if err != nil {
		log.Fatal("error to create embedder: ", err)
	}

	var (
		extractor = model.NewKeyphraseClient(s.cfg.KeyphraseURL)
		llm       = model.NewLLMClient(s.cfg.LLMURL, s.cfg.LLMModel, systemPrompt)
		engine    = retriever.New(pool, embedder, extractor, retriever.DefaultConfig())
		asker     = answer.New(engine, llm)

		app            = fiber.New(config)
		checkHandler   = api.NewCheckHandler()
		requestHandler = api.NewRequestHandler(engine, asker, s.cfg.SourceDir)

		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/ask", requestHandler.HandleAsk)
	apiv1.Post("/search", requestHandler.HandleSearch)
	apiv1.Post("/ingest", requestHandler.HandleUpload)

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
	}
}
