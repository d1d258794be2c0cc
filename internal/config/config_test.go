package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// isolate points Load at files under a temp dir and clears variables that
// would leak in from the host.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	for _, key := range []string{"LLM_API_KEY", "GOOGLE_API_KEY", "LIBRARY_EXTENSIONS", "LLM_PROVIDER", "LIBRARY_WATCH"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	isolate(t)
	if _, err := Load(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("LLM_API_KEY", "k")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.FallbackModel != "models/gemini-1.5-flash" || cfg.LLM.PreferredTag != "flash" {
		t.Errorf("llm defaults = %+v", cfg.LLM)
	}
	if cfg.Library.MaxAttempts != 15 || cfg.PollInterval() != time.Second {
		t.Errorf("library defaults = %+v", cfg.Library)
	}
	if !reflect.DeepEqual(cfg.Library.Extensions, []string{".pdf"}) {
		t.Errorf("extensions = %v", cfg.Library.Extensions)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, `
[llm]
provider = " OpenAI "
api_key = "from-file"
base_url = "http://localhost:11434/v1"

[library]
extensions = ["PDF", " docx ", ""]
max_attempts = 3

[auth.users]
admin = "homebrew"
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LIBRARY_MAX_ATTEMPTS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "from-file" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if !reflect.DeepEqual(cfg.Library.Extensions, []string{".pdf", ".docx"}) {
		t.Errorf("extensions = %v", cfg.Library.Extensions)
	}
	if cfg.Library.MaxAttempts != 7 {
		t.Errorf("max attempts = %d, want env override 7", cfg.Library.MaxAttempts)
	}
	if cfg.Auth.Users["admin"] != "homebrew" {
		t.Errorf("users = %v", cfg.Auth.Users)
	}
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "google")
	t.Setenv("LLM_API_KEY", "llm")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "llm" {
		t.Errorf("api key = %q, want LLM_API_KEY to win", cfg.LLM.APIKey)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "LLM_API_KEY=from-dotenv\n")
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv("LLM_API_KEY") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "from-dotenv" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("TEST_LIST", " .pdf, ,.md ")
	if got := getEnvAsList("TEST_LIST", nil); !reflect.DeepEqual(got, []string{".pdf", ".md"}) {
		t.Errorf("got %v", got)
	}
	if got := getEnvAsList("TEST_LIST_UNSET", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("fallback got %v", got)
	}
}
