package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"handcut/internal/detection"
	"handcut/internal/workflow"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dbPath     string
}

func setupCLITestEnv(t *testing.T, apiKey string) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"HANDCUT_LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "HANDCUT_POSTGRES_DSN", "DATABASE_URL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "handcut.toml"),
		dbPath:     filepath.Join(base, "data", "hands.db"),
	}
	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q
data_dir = %q

[llm]
api_key = %q

[storage]
backend = "sqlite"
sqlite_path = %q

[logging]
format = "json"
level = "error"
`,
		filepath.Join(base, "work"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "data"),
		apiKey,
		env.dbPath,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args []string, opts ...workflow.Option) (string, string, error) {
	t.Helper()
	cmd := newRootCommandWith(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

type stubDetector struct {
	mu      sync.Mutex
	changes []detection.SceneChange
	err     error
	got     []detection.Config
}

func (s *stubDetector) DetectWithStats(_ context.Context, _ string, _ float64, cfg detection.Config) ([]detection.SceneChange, detection.Stats, error) {
	s.mu.Lock()
	s.got = append(s.got, cfg)
	s.mu.Unlock()
	if s.err != nil {
		return nil, detection.Stats{}, s.err
	}
	stats := detection.Stats{Frames: 90, Classified: 90, Candidates: len(s.changes), Accepted: len(s.changes)}
	return s.changes, stats, nil
}

func threeBoundaries() *stubDetector {
	return &stubDetector{changes: []detection.SceneChange{
		{TimestampSeconds: 10, Confidence: 0.9, FrameIndex: 1, HandNumber: "12"},
		{TimestampSeconds: 300, Confidence: 0.8, FrameIndex: 30, HandNumber: "13"},
		{TimestampSeconds: 600, Confidence: 0.75, FrameIndex: 60},
	}}
}
