package types

import (
	"fmt"
	"os"
	"strconv"
)

// Config carries the process-wide settings read once at startup from the
// environment and passed by reference to the components that need them.
type Config struct {
	ServerAddr string

	PGHost   string
	PGPort   int
	PGUser   string
	PGPass   string
	PGDBName string

	EmbedderBackend string // "ollama" or "openai"
	OllamaURL       string
	OllamaModel     string
	OpenAIModel     string

	KeyphraseURL string
	LLMURL       string
	LLMModel     string

	SourceDir    string
	ChunkSize    int
	ChunkOverlap int
	MinChunkSize int
}

func LoadConfig() Config {
	return Config{
		ServerAddr: getenv("SERVER_ADDR", ":3000"),

		PGHost:   getenv("PG_HOST", "localhost"),
		PGPort:   getenvInt("PG_PORT", 5432),
		PGUser:   os.Getenv("PG_USER"),
		PGPass:   os.Getenv("PG_PASS"),
		PGDBName: getenv("PG_DB_NAME", "docqa"),

		EmbedderBackend: getenv("EMBEDDER_BACKEND", "ollama"),
		OllamaURL:       os.Getenv("OLLAMA_EMBEDDING_URL"),
		OllamaModel:     getenv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		OpenAIModel:     getenv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		KeyphraseURL: os.Getenv("KEYPHRASE_URL"),
		LLMURL:       os.Getenv("LLM_URL"),
		LLMModel:     os.Getenv("LLM_MODEL"),

		SourceDir:    getenv("SOURCE_DIR", "output_md"),
		ChunkSize:    getenvInt("CHUNK_SIZE", 750),
		ChunkOverlap: getenvInt("CHUNK_OVERLAP", 150),
		MinChunkSize: getenvInt("MIN_CHUNK_SIZE", 75),
	}
}

// PGConnStr builds the pgx connection string the way the store expects it.
func (c Config) PGConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PGHost, c.PGPort, c.PGUser, c.PGPass, c.PGDBName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
