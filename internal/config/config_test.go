package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"handcut/internal/config"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HANDCUT_LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "HANDCUT_POSTGRES_DSN", "DATABASE_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearKeyEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "handcut")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Storage.SQLitePath != filepath.Join(wantData, "hands.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Storage.SQLitePath)
	}
	if cfg.Paths.WorkDir == "" {
		t.Fatal("expected work dir to default to temp dir")
	}
	if cfg.Detection.SampleInterval != 10 || cfg.Detection.Quality != 2 || cfg.Detection.Concurrency != 3 {
		t.Fatalf("unexpected detection defaults: %+v", cfg.Detection)
	}
	if cfg.Detection.Threshold != 0.7 {
		t.Fatalf("expected threshold 0.7, got %v", cfg.Detection.Threshold)
	}
	if cfg.Detection.FailurePolicy != config.FailurePolicyFailFast {
		t.Fatalf("expected fail_fast policy, got %q", cfg.Detection.FailurePolicy)
	}
	if cfg.LLM.APIKey != "" {
		t.Fatalf("expected empty api key, got %q", cfg.LLM.APIKey)
	}
	if err := cfg.RequireLLM(); err == nil {
		t.Fatal("expected RequireLLM to fail without key")
	}
}

func TestLoadCustomConfig(t *testing.T) {
	clearKeyEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "handcut.toml")
	contents := `
[paths]
work_dir = "` + filepath.Join(tempDir, "work") + `"

[llm]
api_key = "file-key"
model = "openai/gpt-4o"

[detection]
sample_interval = 5
threshold = 0.85
concurrency = 6
failure_policy = "SKIP"

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.WorkDir != filepath.Join(tempDir, "work") {
		t.Fatalf("unexpected work dir %q", cfg.Paths.WorkDir)
	}
	if cfg.LLM.APIKey != "file-key" || cfg.LLM.Model != "openai/gpt-4o" {
		t.Fatalf("unexpected llm section: %+v", cfg.LLM)
	}
	if cfg.Detection.SampleInterval != 5 || cfg.Detection.Threshold != 0.85 || cfg.Detection.Concurrency != 6 {
		t.Fatalf("unexpected detection section: %+v", cfg.Detection)
	}
	if cfg.Detection.FailurePolicy != config.FailurePolicySkip {
		t.Fatalf("expected policy normalized to skip, got %q", cfg.Detection.FailurePolicy)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if cfg.Detection.Quality != 2 {
		t.Fatalf("expected default quality to survive partial file, got %d", cfg.Detection.Quality)
	}
}

func TestEnvFallbackForKeys(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "env-router")
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("DATABASE_URL", "postgres://localhost/hands")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-router" {
		t.Fatalf("expected OPENROUTER_API_KEY to win over OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.Storage.PostgresDSN != "postgres://localhost/hands" {
		t.Fatalf("expected DSN from DATABASE_URL, got %q", cfg.Storage.PostgresDSN)
	}

	t.Setenv("HANDCUT_LLM_API_KEY", "env-handcut")
	cfg, _, _, err = config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-handcut" {
		t.Fatalf("expected HANDCUT_LLM_API_KEY first, got %q", cfg.LLM.APIKey)
	}
}

func TestConfigFileKeyBeatsEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "env-router")
	configPath := filepath.Join(t.TempDir(), "handcut.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("expected file key, got %q", cfg.LLM.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[detection]") {
		t.Fatalf("sample config missing detection section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Detection.SampleInterval != 10 || cfg.Detection.Threshold != 0.7 {
		t.Fatalf("sample detection values drifted from defaults: %+v", cfg.Detection)
	}
	if cfg.Storage.Backend != config.StorageSQLite {
		t.Fatalf("expected sqlite backend in sample, got %q", cfg.Storage.Backend)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"zero interval":      func(c *config.Config) { c.Detection.SampleInterval = 0 },
		"negative interval":  func(c *config.Config) { c.Detection.SampleInterval = -5 },
		"quality too high":   func(c *config.Config) { c.Detection.Quality = 32 },
		"zero concurrency":   func(c *config.Config) { c.Detection.Concurrency = 0 },
		"threshold above 1":  func(c *config.Config) { c.Detection.Threshold = 1.2 },
		"threshold below 0":  func(c *config.Config) { c.Detection.Threshold = -0.1 },
		"zero threshold":     func(c *config.Config) { c.Detection.Threshold = 0 },
		"max below min":      func(c *config.Config) { c.Detection.MaxHandDuration = 10 },
		"negative min":       func(c *config.Config) { c.Detection.MinHandDuration = -1 },
		"unknown policy":     func(c *config.Config) { c.Detection.FailurePolicy = "retry" },
		"postgres no dsn":    func(c *config.Config) { c.Storage.Backend = config.StoragePostgres },
		"unknown backend":    func(c *config.Config) { c.Storage.Backend = "mysql" },
		"zero parse retries": func(c *config.Config) { c.Detection.ParseAttempts = 0 },
		"zero run timeout":   func(c *config.Config) { c.Detection.RunTimeoutSeconds = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.SQLitePath = "/tmp/hands.db"
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.Storage.SQLitePath = "/tmp/hands.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Storage.SQLitePath = filepath.Join(base, "db", "hands.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir, cfg.Paths.DataDir, filepath.Dir(cfg.Storage.SQLitePath)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}
