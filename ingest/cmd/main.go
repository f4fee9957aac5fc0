package main

import (
	"context"
	"flag"
	"log"

	"docqa/ingest"
	"docqa/model"
	"docqa/store"
	"docqa/types"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	file := flag.String("file", "", "ingest a single markdown file instead of the whole source dir")
	flag.Parse()

	cfg := types.LoadConfig()
	ctx := context.Background()

	pool, err := store.NewPostgresStore(ctx, cfg.PGConnStr())
	if err != nil {
		log.Fatal("error to connect to Postgres database: ", err)
	}
	defer pool.Close()

	if err := pool.Init(ctx); err != nil {
		log.Fatal("error to create tables: ", err)
	}

	embedder, err := model.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("error to create embedder: ", err)
	}

	extractor := model.NewKeyphraseClient(cfg.KeyphraseURL)
	llm := model.NewLLMClient(cfg.LLMURL, cfg.LLMModel, "")

	service := ingest.New(
		pool,
		ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize),
		ingest.NewEnricher(extractor, llm),
		embedder,
	)

	if *file != "" {
		if err := service.ProcessFile(ctx, *file); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := service.ProcessDir(ctx, cfg.SourceDir); err != nil {
		log.Fatal(err)
	}
}

func mustLoadEnvVariables() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
}
