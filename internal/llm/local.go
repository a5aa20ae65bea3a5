package llm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"vericode/internal/config"
)

// Runner submits a prompt to a local inference process and returns its
// collected output.
type Runner interface {
	Run(ctx context.Context, modelPath, prompt string) (string, error)
}

// scriptRunner spawns the configured interpreter and script, writes the
// prompt to stdin, and drains stdout/stderr until the process exits. The
// process handle is bound to ctx, so a cancelled or expired context kills
// it and Run always returns with the handle released.
type scriptRunner struct {
	command string
	script  string
	device  string
}

func newScriptRunner(cfg config.LLMConfig) *scriptRunner {
	return &scriptRunner{
		command: cfg.RunnerCommand,
		script:  cfg.RunnerScript,
		device:  cfg.Device,
	}
}

func (r *scriptRunner) Run(ctx context.Context, modelPath, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, r.command, r.script, modelPath)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "LLM_MODE="+r.device)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", &InferenceError{Kind: KindTimeout, Detail: "local inference interrupted: " + ctx.Err().Error(), Err: err}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &InferenceError{Kind: KindProcess, Detail: strings.TrimSpace(stderr.String()), Err: err}
		}
		return "", &InferenceError{Kind: KindLaunch, Detail: err.Error(), Err: err}
	}
	return stdout.String(), nil
}

// localAnalyzer serves analysis requests by spawning the local runner.
type localAnalyzer struct {
	runner   Runner
	registry *Registry
	device   string
	timeout  time.Duration
	log      *zap.Logger
}

func newLocalAnalyzer(cfg config.LLMConfig, registry *Registry, logger *zap.Logger) *localAnalyzer {
	return &localAnalyzer{
		runner:   newScriptRunner(cfg),
		registry: registry,
		device:   cfg.Device,
		timeout:  cfg.RequestTimeout(),
		log:      logger,
	}
}

func (a *localAnalyzer) Analyze(ctx context.Context, code, modelName string) (string, error) {
	desc := a.registry.Resolve(modelName, ModeLocal)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.runner.Run(ctx, desc.Path, buildPrompt(code))
	if err != nil {
		var infErr *InferenceError
		if errors.As(err, &infErr) {
			a.log.Error("local inference failed",
				zap.String("model", desc.Name),
				zap.String("kind", string(infErr.Kind)),
				zap.String("detail", infErr.Detail))
		}
		return "", err
	}
	return out, nil
}

// TestConnection sends the system-check sentinel to the first local model
// and expects a zero exit. Detected device lines matching the configured
// hint are logged. Never returns an error.
func (a *localAnalyzer) TestConnection(ctx context.Context) bool {
	desc := a.registry.Resolve("", ModeLocal)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.runner.Run(ctx, desc.Path, systemCheckPrompt)
	if err != nil {
		a.log.Error("local runner connection failed", zap.String("model", desc.DisplayName), zap.Error(err))
		return false
	}
	a.log.Info("local model loaded",
		zap.String("model", desc.DisplayName),
		zap.String("configured_device", a.device))
	prefix := strings.ToUpper(a.device) + ":"
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, prefix) {
			a.log.Info("detected device", zap.String("device", line))
		}
	}
	return true
}
