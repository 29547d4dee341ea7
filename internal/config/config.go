// Package config loads configuration from a JSON file at
// $XDG_CONFIG_HOME/ticketry/config.json with TICKETRY_* environment
// variable overrides. Secrets (API tokens) are env-only and never written
// to the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Server      ServerConfig
	Source      SourceConfig
	Jira        JiraConfig
	Spreadsheet SpreadsheetConfig
	LLM         LLMConfig
	Embedding   EmbeddingConfig
	Index       IndexConfig
	Storage     StorageConfig
	Ingest      IngestConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
	// APIToken protects the HTTP API with bearer auth when set.
	// Empty leaves the API open, which is fine for localhost use.
	APIToken string
}

type SourceConfig struct {
	Kind string // "jira" or "spreadsheet"
}

type JiraConfig struct {
	Host     string
	Email    string
	APIToken string
	JQL      string
}

type SpreadsheetConfig struct {
	Path string
}

type LLMConfig struct {
	Provider   string // "ollama" or "openai"
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
}

type EmbeddingConfig struct {
	Dimension int
}

type IndexConfig struct {
	Backend string // "sqlite" or "memory"
}

type StorageConfig struct {
	DataDir string
}

type IngestConfig struct {
	Concurrency int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4200,
			MCPPort: 4201,
		},
		Source: SourceConfig{
			Kind: "jira",
		},
		Jira: JiraConfig{
			JQL: "order by created DESC",
		},
		LLM: LLMConfig{
			Provider:   "ollama",
			BaseURL:    "http://localhost:11434",
			ChatModel:  "llama3.1",
			EmbedModel: "nomic-embed-text",
		},
		Embedding: EmbeddingConfig{
			// nomic-embed-text emits 768-dimension vectors; set 1536 when
			// switching to OpenAI text-embedding-ada-002.
			Dimension: 768,
		},
		Index: IndexConfig{
			Backend: "sqlite",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Ingest: IngestConfig{
			Concurrency: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "ticketry-data"
		}
	}
	return filepath.Join(dir, "ticketry")
}

// Load reads configuration from the config file and applies environment
// overrides, then validates that the selected source and LLM provider
// have what they need.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Source.Kind {
	case "jira":
		if cfg.Jira.Host == "" {
			return fmt.Errorf("missing required config: jira.host (env TICKETRY_JIRA_HOST) is required when source.kind is %q", cfg.Source.Kind)
		}
		if cfg.Jira.Email == "" || cfg.Jira.APIToken == "" {
			return fmt.Errorf("missing required config: set TICKETRY_JIRA_EMAIL and TICKETRY_JIRA_API_TOKEN for jira access")
		}
	case "spreadsheet":
		if cfg.Spreadsheet.Path == "" {
			return fmt.Errorf("missing required config: spreadsheet.path (env TICKETRY_SPREADSHEET_PATH) is required when source.kind is %q", cfg.Source.Kind)
		}
	default:
		return fmt.Errorf("invalid source.kind %q: must be \"jira\" or \"spreadsheet\"", cfg.Source.Kind)
	}

	switch cfg.LLM.Provider {
	case "ollama":
	case "openai":
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("missing required config: llm.api_key (env TICKETRY_LLM_API_KEY) is required when llm.provider is %q", cfg.LLM.Provider)
		}
	default:
		return fmt.Errorf("invalid llm.provider %q: must be \"ollama\" or \"openai\"", cfg.LLM.Provider)
	}

	if cfg.Embedding.Dimension <= 0 {
		return fmt.Errorf("invalid embedding.dimension %d: must be positive", cfg.Embedding.Dimension)
	}

	switch cfg.Index.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid index.backend %q: must be \"sqlite\" or \"memory\"", cfg.Index.Backend)
	}

	return nil
}
