package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	data map[string]any
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	return v.(int), true, nil
}

func (b *mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *mapBackend) SetInt(key string, val int) error { b.data[key] = val; return nil }
func (b *mapBackend) Delete(key string) error          { delete(b.data, key); return nil }

// setJiraEnv satisfies the default source's required settings.
func setJiraEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TICKETRY_JIRA_HOST", "https://example.atlassian.net")
	t.Setenv("TICKETRY_JIRA_EMAIL", "me@example.com")
	t.Setenv("TICKETRY_JIRA_API_TOKEN", "token123")
}

func TestLoadDefaults(t *testing.T) {
	setJiraEnv(t)

	cfg, err := loadWith(&mapBackend{data: map[string]any{}})
	if err != nil {
		t.Fatalf("loadWith() error: %v", err)
	}

	if cfg.Server.Port != 4200 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.ChatModel != "llama3.1" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Embedding.Dimension != 768 {
		t.Errorf("Dimension = %d", cfg.Embedding.Dimension)
	}
	if cfg.Index.Backend != "sqlite" {
		t.Errorf("Backend = %q", cfg.Index.Backend)
	}
}

func TestLoadBackendValues(t *testing.T) {
	setJiraEnv(t)

	cfg, err := loadWith(&mapBackend{data: map[string]any{
		"server.port":    9999,
		"llm.chat_model": "mistral",
	}})
	if err != nil {
		t.Fatalf("loadWith() error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want backend value", cfg.Server.Port)
	}
	if cfg.LLM.ChatModel != "mistral" {
		t.Errorf("ChatModel = %q", cfg.LLM.ChatModel)
	}
}

func TestEnvOverridesBeatBackend(t *testing.T) {
	setJiraEnv(t)
	t.Setenv("TICKETRY_SERVER_PORT", "7777")
	t.Setenv("TICKETRY_LOG_LEVEL", "debug")

	cfg, err := loadWith(&mapBackend{data: map[string]any{"server.port": 9999}})
	if err != nil {
		t.Fatalf("loadWith() error: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, env must beat the file", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestSecretsComeFromEnvOnly(t *testing.T) {
	setJiraEnv(t)

	// A token in the config file must be ignored.
	cfg, err := loadWith(&mapBackend{data: map[string]any{"jira.api_token": "from-file"}})
	if err != nil {
		t.Fatalf("loadWith() error: %v", err)
	}
	if cfg.Jira.APIToken != "token123" {
		t.Errorf("APIToken = %q, secrets must only come from the environment", cfg.Jira.APIToken)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "jira without host",
			env:     map[string]string{"TICKETRY_SOURCE_KIND": "jira"},
			wantErr: "jira.host",
		},
		{
			name:    "spreadsheet without path",
			env:     map[string]string{"TICKETRY_SOURCE_KIND": "spreadsheet"},
			wantErr: "spreadsheet.path",
		},
		{
			name: "unknown source kind",
			env:  map[string]string{"TICKETRY_SOURCE_KIND": "email"},
			wantErr: "invalid source.kind",
		},
		{
			name: "openai without api key",
			env: map[string]string{
				"TICKETRY_SOURCE_KIND":      "spreadsheet",
				"TICKETRY_SPREADSHEET_PATH": "/tmp/tickets.csv",
				"TICKETRY_LLM_PROVIDER":     "openai",
			},
			wantErr: "llm.api_key",
		},
		{
			name: "unknown index backend",
			env: map[string]string{
				"TICKETRY_SOURCE_KIND":      "spreadsheet",
				"TICKETRY_SPREADSHEET_PATH": "/tmp/tickets.csv",
				"TICKETRY_INDEX_BACKEND":    "redis",
			},
			wantErr: "invalid index.backend",
		},
		{
			name: "non-positive dimension",
			env: map[string]string{
				"TICKETRY_SOURCE_KIND":         "spreadsheet",
				"TICKETRY_SPREADSHEET_PATH":    "/tmp/tickets.csv",
				"TICKETRY_EMBEDDING_DIMENSION": "0",
			},
			wantErr: "embedding.dimension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadWith(&mapBackend{data: map[string]any{}})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("loadWith() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetKey("llm.chat_model", "mistral"); err != nil {
		t.Fatalf("SetKey() error: %v", err)
	}
	if err := SetKey("server.port", "not-a-number"); err == nil {
		t.Error("SetKey should reject a non-integer for an int key")
	}
	if err := SetKey("no.such.key", "x"); err == nil {
		t.Error("SetKey should reject unknown keys")
	}
}

func TestSetKeyRefusesSecrets(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	err := SetKey("jira.api_token", "secret-value")
	if err == nil || !strings.Contains(err.Error(), "TICKETRY_JIRA_API_TOKEN") {
		t.Fatalf("SetKey() error = %v, want refusal pointing at the env var", err)
	}

	// Nothing may have been written to disk.
	if data, err := os.ReadFile(filepath.Join(dir, "ticketry", "config.json")); err == nil {
		if strings.Contains(string(data), "secret-value") {
			t.Error("secret leaked into the config file")
		}
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Jira.APIToken = "super-secret"
	cfg.Server.APIToken = "also-secret"

	for _, k := range ShowAll(cfg) {
		if strings.Contains(k.Value, "secret") {
			t.Errorf("ShowAll exposed secret via key %s", k.Key)
		}
	}
}
