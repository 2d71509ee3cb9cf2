package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in Settings.
const (
	VectorStoreQdrant   = "qdrant"
	VectorStorePostgres = "postgres"
	VectorStoreMemory   = "memory"

	SessionStoreRedis  = "redis"
	SessionStoreSQLite = "sqlite"

	LLMProviderGemini = "gemini"
	LLMProviderOpenAI = "openai"

	EmbeddingGoogle = "google"
	EmbeddingHash   = "hash"
)

type ChunkSettings struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type QdrantSettings struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type ModelSettings struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	GoogleAPIKey   string `yaml:"-"`
	OpenAIAPIKey   string `yaml:"-"`
	Embedding      string `yaml:"embedding"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// Settings is the runtime configuration. Constants in this package are the defaults.
type Settings struct {
	Env            string         `yaml:"env"`
	ListenAddr     string         `yaml:"listen_addr"`
	TranscriptsDir string         `yaml:"transcripts_dir"`
	DataDir        string         `yaml:"data_dir"`
	ExportsDir     string         `yaml:"exports_dir"`
	TopK           int            `yaml:"top_k"`
	Chunk          ChunkSettings  `yaml:"chunk"`
	VectorStore    string         `yaml:"vector_store"`
	SessionStore   string         `yaml:"session_store"`
	PostgresDSN    string         `yaml:"-"`
	Qdrant         QdrantSettings `yaml:"qdrant"`
	Redis          RedisSettings  `yaml:"redis"`
	Models         ModelSettings  `yaml:"models"`
	AuthToken      string         `yaml:"-"`
	LogLevel       string         `yaml:"log_level"`
}

func Defaults() Settings {
	return Settings{
		Env:            "dev",
		ListenAddr:     ServerListenAddr,
		TranscriptsDir: DefaultTranscriptsDir,
		DataDir:        DefaultDataDir,
		ExportsDir:     DefaultExportsDir,
		TopK:           DefaultTopK,
		Chunk:          ChunkSettings{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		VectorStore:    VectorStoreQdrant,
		SessionStore:   SessionStoreRedis,
		Qdrant: QdrantSettings{
			Host:       QdrantHost,
			Port:       QdrantGrpcPort,
			UseTLS:     QdrantUseTLS,
			Collection: CollectionName,
		},
		Redis: RedisSettings{Addr: RedisAddr},
		Models: ModelSettings{
			Provider:       LLMProviderGemini,
			Model:          GeminiModelName,
			Embedding:      EmbeddingGoogle,
			EmbeddingModel: GoogleEmbeddingModel,
		},
		LogLevel: "debug",
	}
}

// Load builds Settings from defaults, an optional yaml file, a .env file and
// the process environment, in that order of precedence.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return s, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &s); err != nil {
				return s, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	applyEnv(&s)
	applyDefaults(&s)
	return s, s.Validate()
}

func (s Settings) IsProd() bool {
	return s.Env == "prod"
}

func (s Settings) Validate() error {
	if s.Chunk.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", s.Chunk.Size)
	}
	if s.Chunk.Overlap < 0 || s.Chunk.Overlap >= s.Chunk.Size {
		return fmt.Errorf("chunk overlap %d must be in [0, %d)", s.Chunk.Overlap, s.Chunk.Size)
	}
	switch s.VectorStore {
	case VectorStoreQdrant, VectorStoreMemory:
	case VectorStorePostgres:
		if s.PostgresDSN == "" {
			return errors.New("vector store postgres needs POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown vector store %q", s.VectorStore)
	}
	switch s.SessionStore {
	case SessionStoreRedis, SessionStoreSQLite:
	default:
		return fmt.Errorf("unknown session store %q", s.SessionStore)
	}
	switch s.Models.Provider {
	case LLMProviderGemini, LLMProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider %q", s.Models.Provider)
	}
	switch s.Models.Embedding {
	case EmbeddingGoogle, EmbeddingHash:
	default:
		return fmt.Errorf("unknown embedding provider %q", s.Models.Embedding)
	}
	return nil
}

func applyEnv(s *Settings) {
	setString(&s.Env, "APP_ENV")
	setString(&s.LogLevel, "LOG_LEVEL")
	setString(&s.ListenAddr, "LISTEN_ADDR")
	setString(&s.TranscriptsDir, "TRANSCRIPTS_DIR")
	setString(&s.DataDir, "DATA_DIR")
	setString(&s.ExportsDir, "EXPORTS_DIR")
	setString(&s.VectorStore, "VECTOR_STORE")
	setString(&s.SessionStore, "SESSION_STORE")
	setString(&s.PostgresDSN, "POSTGRES_DSN")
	setString(&s.Qdrant.Host, "QDRANT_HOST")
	setInt(&s.Qdrant.Port, "QDRANT_PORT")
	setString(&s.Redis.Addr, "REDIS_ADDR")
	setString(&s.Redis.Password, "REDIS_PASSWORD")
	setString(&s.Models.Provider, "LLM_PROVIDER")
	setString(&s.Models.Model, "LLM_MODEL")
	setString(&s.Models.Embedding, "EMBEDDING_PROVIDER")
	setString(&s.Models.GoogleAPIKey, "GOOGLE_AI_API_KEY")
	setString(&s.Models.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&s.AuthToken, "AUTH_TOKEN")
	setInt(&s.TopK, "TOP_K")
	setInt(&s.Chunk.Size, "CHUNK_SIZE")
	setInt(&s.Chunk.Overlap, "CHUNK_OVERLAP")
}

func applyDefaults(s *Settings) {
	if s.TopK <= 0 {
		s.TopK = DefaultTopK
	}
	if s.Qdrant.Collection == "" {
		s.Qdrant.Collection = CollectionName
	}
	if s.Models.Provider == LLMProviderOpenAI && s.Models.Model == GeminiModelName {
		s.Models.Model = OpenAIModelName
	}
}

func setString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func setInt(target *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*target = n
	}
}
