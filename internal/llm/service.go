package llm

import (
	"context"

	"go.uber.org/zap"

	"vericode/internal/config"
)

// Analyzer turns a code payload and an optional model selection into
// generated analysis text.
type Analyzer interface {
	Analyze(ctx context.Context, code, modelName string) (string, error)
	// TestConnection validates reachability of the active backend. It
	// never fails hard; problems are logged and reported as false.
	TestConnection(ctx context.Context) bool
}

// NewService builds the analyzer for the configured operating mode. The
// mode is read once here; it selects exactly one strategy for the
// lifetime of the process.
func NewService(cfg config.LLMConfig, registry *Registry, logger *zap.Logger) (Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LocalMode() {
		return newLocalAnalyzer(cfg, registry, logger), nil
	}
	return newCloudAnalyzer(cfg, registry, logger)
}
