package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "TICKETRY_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "TICKETRY_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "server.api_token", typ: kString, env: "TICKETRY_SERVER_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "source.kind", typ: kString, env: "TICKETRY_SOURCE_KIND",
		apply:   func(cfg *Config, v any) { cfg.Source.Kind = v.(string) },
		extract: func(cfg Config) any { return cfg.Source.Kind },
	},
	{
		key: "jira.host", typ: kString, env: "TICKETRY_JIRA_HOST",
		apply:   func(cfg *Config, v any) { cfg.Jira.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Jira.Host },
	},
	{
		key: "jira.email", typ: kString, env: "TICKETRY_JIRA_EMAIL",
		apply:   func(cfg *Config, v any) { cfg.Jira.Email = v.(string) },
		extract: func(cfg Config) any { return cfg.Jira.Email },
	},
	{
		key: "jira.api_token", typ: kString, env: "TICKETRY_JIRA_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Jira.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Jira.APIToken },
	},
	{
		key: "jira.jql", typ: kString, env: "TICKETRY_JIRA_JQL",
		apply:   func(cfg *Config, v any) { cfg.Jira.JQL = v.(string) },
		extract: func(cfg Config) any { return cfg.Jira.JQL },
	},
	{
		key: "spreadsheet.path", typ: kString, env: "TICKETRY_SPREADSHEET_PATH",
		apply:   func(cfg *Config, v any) { cfg.Spreadsheet.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Spreadsheet.Path },
	},
	{
		key: "llm.provider", typ: kString, env: "TICKETRY_LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "llm.base_url", typ: kString, env: "TICKETRY_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.api_key", typ: kString, env: "TICKETRY_LLM_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.chat_model", typ: kString, env: "TICKETRY_LLM_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.ChatModel },
	},
	{
		key: "llm.embed_model", typ: kString, env: "TICKETRY_LLM_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.EmbedModel },
	},
	{
		key: "embedding.dimension", typ: kInt, env: "TICKETRY_EMBEDDING_DIMENSION",
		apply:   func(cfg *Config, v any) { cfg.Embedding.Dimension = v.(int) },
		extract: func(cfg Config) any { return cfg.Embedding.Dimension },
	},
	{
		key: "index.backend", typ: kString, env: "TICKETRY_INDEX_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Index.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Index.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "TICKETRY_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "ingest.concurrency", typ: kInt, env: "TICKETRY_INGEST_CONCURRENCY",
		apply:   func(cfg *Config, v any) { cfg.Ingest.Concurrency = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.Concurrency },
	},
	{
		key: "log.level", typ: kString, env: "TICKETRY_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
