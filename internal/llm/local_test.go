package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vericode/internal/config"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runner.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestScriptRunnerCollectsStdout(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo "model path: $1"
echo "stub analysis"`)
	r := &scriptRunner{command: "sh", script: script, device: "CPU"}

	out, err := r.Run(context.Background(), "/models/phi.gguf", "some prompt")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(out, "model path: /models/phi.gguf") {
		t.Fatalf("model path not passed to process, got %q", out)
	}
	if !strings.Contains(out, "stub analysis") {
		t.Fatalf("stdout not collected, got %q", out)
	}
}

func TestScriptRunnerNonZeroExit(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
echo "model blew up" >&2
exit 3`)
	r := &scriptRunner{command: "sh", script: script, device: "CPU"}

	_, err := r.Run(context.Background(), "/models/phi.gguf", "prompt")
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if infErr.Kind != KindProcess {
		t.Fatalf("expected process failure kind, got %s", infErr.Kind)
	}
	if !strings.Contains(infErr.Detail, "model blew up") {
		t.Fatalf("expected stderr in detail, got %q", infErr.Detail)
	}
}

func TestScriptRunnerLaunchFailure(t *testing.T) {
	r := &scriptRunner{command: "/nonexistent/interpreter", script: "run.py", device: "CPU"}

	_, err := r.Run(context.Background(), "/models/phi.gguf", "prompt")
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if infErr.Kind != KindLaunch {
		t.Fatalf("expected launch failure kind, got %s", infErr.Kind)
	}
}

func TestScriptRunnerTimeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)
	r := &scriptRunner{command: "sh", script: script, device: "CPU"}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, "/models/phi.gguf", "prompt")
	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("expected InferenceError, got %v", err)
	}
	if infErr.Kind != KindTimeout {
		t.Fatalf("expected timeout kind, got %s", infErr.Kind)
	}
}

func TestLocalAnalyzerEndToEnd(t *testing.T) {
	script := writeScript(t, `prompt=$(cat)
case "$prompt" in
  SYSTEM_CHECK)
    echo "CPU: Test CPU"
    echo "GPU: No NVIDIA GPU Detected"
    ;;
  *)
    echo "analysis of $1"
    ;;
esac`)
	cfg := config.LLMConfig{
		OpMode:                config.OpModeLocal,
		ModelDir:              "/models",
		RunnerCommand:         "sh",
		RunnerScript:          script,
		Device:                "CPU",
		RequestTimeoutSeconds: 30,
	}
	registry := NewRegistry(cfg.ModelDir, nil)
	analyzer, err := NewService(cfg, registry, nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	if ok := analyzer.TestConnection(context.Background()); !ok {
		t.Fatalf("expected successful connection check")
	}

	out, err := analyzer.Analyze(context.Background(), "def f(): pass", "")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if !strings.Contains(out, "analysis of") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "Phi-3-mini-4k-instruct.Q4_0.gguf") {
		t.Fatalf("expected resolved model path in output, got %q", out)
	}
}

func TestLocalTestConnectionReportsFailure(t *testing.T) {
	script := writeScript(t, `exit 1`)
	cfg := config.LLMConfig{
		OpMode:                config.OpModeLocal,
		ModelDir:              "/models",
		RunnerCommand:         "sh",
		RunnerScript:          script,
		Device:                "CPU",
		RequestTimeoutSeconds: 30,
	}
	analyzer, err := NewService(cfg, NewRegistry(cfg.ModelDir, nil), nil)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	if analyzer.TestConnection(context.Background()) {
		t.Fatalf("expected failed connection check")
	}
}
