package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"handcut/internal/config"
	"handcut/internal/services"
	"handcut/internal/timecode"
	"handcut/internal/workflow"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")

	out, _, err := runCLI(t, env, []string{"config", "validate"})
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "handcut.toml")
	out, _, err = runCLI(t, nil, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, nil, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, _, err := runCLI(t, nil, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t, "super-secret")

	out, _, err := runCLI(t, env, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("api key leaked into output: %s", out)
	}
	requireContains(t, out, redacted)
	requireContains(t, out, "[detection]")
}

func TestInvalidConfigIsConfigurationError(t *testing.T) {
	env := setupCLITestEnv(t, "k")
	f, err := os.OpenFile(env.configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open config: %v", err)
	}
	if _, err := f.WriteString("\n[detection]\nthreshold = 1.5\n"); err != nil {
		t.Fatalf("append config: %v", err)
	}
	f.Close()

	_, _, err = runCLI(t, env, []string{"runs"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.ExitCode(err) != services.ExitInvalid {
		t.Fatalf("expected exit code %d, got %d", services.ExitInvalid, services.ExitCode(err))
	}
}

func TestTimecodeCommand(t *testing.T) {
	cases := []struct {
		arg  string
		want string
	}{
		{"3725", "01:02:05"},
		{"59.9", "00:00:59"},
		{"01:02:05", "3725"},
		{"90:00", "5400"},
	}
	for _, tc := range cases {
		t.Run(tc.arg, func(t *testing.T) {
			out, _, err := runCLI(t, nil, []string{"timecode", tc.arg})
			if err != nil {
				t.Fatalf("timecode %s: %v", tc.arg, err)
			}
			if strings.TrimSpace(out) != tc.want {
				t.Fatalf("timecode %s = %q, want %q", tc.arg, strings.TrimSpace(out), tc.want)
			}
		})
	}

	_, _, err := runCLI(t, nil, []string{"timecode", "1:75:00"})
	if services.ExitCode(err) != services.ExitInvalid {
		t.Fatalf("expected validation exit code, got %v", err)
	}
}

func TestDetectStoresRunAndListsIt(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	detector := threeBoundaries()

	out, _, err := runCLI(t, env,
		[]string{"detect", "final-table.mp4", "--duration", "900", "--stream-id", "day-3", "--skip-checks", "--json"},
		workflow.WithDetector(detector),
		workflow.WithIDGenerator(func() string { return "run-1" }),
	)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var result workflow.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode detect output: %v\n%s", err, out)
	}
	if result.RunID != "run-1" || !result.Stored {
		t.Fatalf("unexpected result header: %+v", result)
	}
	want := []timecode.HandTimecode{
		{HandNumber: 12, StartTime: "00:00:10", EndTime: "00:05:00", Confidence: 0.9},
		{HandNumber: 13, StartTime: "00:05:00", EndTime: "00:10:00", Confidence: 0.8},
	}
	if len(result.Hands) != len(want) {
		t.Fatalf("expected %d hands, got %+v", len(want), result.Hands)
	}
	for i := range want {
		if result.Hands[i] != want[i] {
			t.Fatalf("hand %d = %+v, want %+v", i, result.Hands[i], want[i])
		}
	}

	out, _, err = runCLI(t, env, []string{"runs"})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "run-1")
	requireContains(t, out, "day-3")

	out, _, err = runCLI(t, env, []string{"hands", "run-1", "--json"})
	if err != nil {
		t.Fatalf("hands: %v", err)
	}
	var hands []timecode.HandTimecode
	if err := json.Unmarshal([]byte(out), &hands); err != nil {
		t.Fatalf("decode hands: %v", err)
	}
	if len(hands) != 2 || hands[1].HandNumber != 13 {
		t.Fatalf("unexpected stored hands %+v", hands)
	}

	out, _, err = runCLI(t, env, []string{"hands", "run-1"})
	if err != nil {
		t.Fatalf("hands table: %v", err)
	}
	requireContains(t, out, "00:05:00")
}

func TestDetectFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	detector := threeBoundaries()

	_, _, err := runCLI(t, env,
		[]string{"detect", "v.mp4", "--duration", "900", "--skip-checks", "--no-store",
			"--interval", "5", "--threshold", "0.65", "--policy", "SKIP", "--concurrency", "4"},
		workflow.WithDetector(detector),
	)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(detector.got) != 1 {
		t.Fatalf("expected one detection, got %d", len(detector.got))
	}
	got := detector.got[0]
	if got.Interval != 5 || got.Threshold != 0.65 || got.Concurrency != 4 {
		t.Fatalf("flags not applied: %+v", got)
	}
	if got.FailurePolicy != config.FailurePolicySkip {
		t.Fatalf("expected skip policy, got %q", got.FailurePolicy)
	}
	if got.Quality != 2 {
		t.Fatalf("expected config quality to survive, got %d", got.Quality)
	}

	out, _, err := runCLI(t, env, []string{"runs"})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs stored.")
}

func TestDetectWithoutAPIKeyIsConfigurationError(t *testing.T) {
	env := setupCLITestEnv(t, "")
	detector := threeBoundaries()

	_, _, err := runCLI(t, env, []string{"detect", "v.mp4", "--duration", "60", "--skip-checks"}, workflow.WithDetector(detector))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(detector.got) != 0 {
		t.Fatal("detector should not run without an api key")
	}
}

func TestDetectFailureKeepsClassification(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	detector := &stubDetector{err: services.Wrap(services.ErrTimeout, "detect", "run", "deadline", nil)}

	_, _, err := runCLI(t, env, []string{"detect", "v.mp4", "--duration", "60", "--skip-checks", "--no-store"}, workflow.WithDetector(detector))
	if services.ExitCode(err) != services.ExitTimeout {
		t.Fatalf("expected timeout exit code, got %d (%v)", services.ExitCode(err), err)
	}
}

func TestHandsUnknownRunIsNotFound(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")

	_, _, err := runCLI(t, env, []string{"hands", "missing"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if services.ExitCode(err) != services.ExitNotFound {
		t.Fatalf("expected exit code %d, got %d", services.ExitNotFound, services.ExitCode(err))
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")

	out, _, err := runCLI(t, env, []string{"test-notify"})
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notification not sent")
}

func TestLogsFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t, "test-key")
	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := `{"msg":"detection run started","run_id":"run-7"}
{"msg":"detection run started","run_id":"run-8"}
{"msg":"detection run completed","run_id":"run-7"}
`
	if err := os.WriteFile(filepath.Join(logDir, "handcut-20261019T100000Z.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, []string{"logs", "--run", "run-7"})
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(out, "run-7") != 2 || strings.Contains(out, "run-8") {
		t.Fatalf("unexpected filtered output:\n%s", out)
	}

	_, _, err = runCLI(t, env, []string{"logs", "--run", "missing"})
	if services.ExitCode(err) != services.ExitNotFound {
		t.Fatalf("expected not found for unknown run, got %v", err)
	}
}
