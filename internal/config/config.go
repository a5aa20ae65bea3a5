package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Operating modes for the inference backend.
const (
	OpModeCloud = "cloud"
	OpModeLocal = "local"
	OpModeBoth  = "both"
)

// Config represents runtime configuration for the service. It is loaded
// once at startup and handed to the component constructors; nothing below
// main reads the environment.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	LLM         LLMConfig                 `json:"llm"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// LLMConfig selects and parameterizes the inference backend.
type LLMConfig struct {
	// OpMode is one of cloud, local, both. Dispatch treats anything
	// other than local as cloud; both additionally exposes the local
	// registry through the models endpoint.
	OpMode string `json:"op_mode"`

	// Cloud backend.
	GeminiAPIKey string `json:"gemini_api_key"`
	DefaultModel string `json:"default_model"`

	// Local backend.
	ModelDir      string `json:"model_dir"`
	RunnerCommand string `json:"runner_command"`
	RunnerScript  string `json:"runner_script"`
	// Device is an advisory CPU/GPU hint forwarded to the runner.
	Device string `json:"device"`

	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

// RequestTimeout returns the per-request inference deadline.
func (c LLMConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// LocalMode reports whether requests dispatch to the local runner.
func (c LLMConfig) LocalMode() bool {
	return strings.EqualFold(c.OpMode, OpModeLocal)
}

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.OpMode == "" {
		cfg.LLM.OpMode = OpModeCloud
	}
	switch strings.ToLower(cfg.LLM.OpMode) {
	case OpModeCloud, OpModeLocal, OpModeBoth:
		cfg.LLM.OpMode = strings.ToLower(cfg.LLM.OpMode)
	default:
		return nil, fmt.Errorf("invalid llm op_mode: %s", cfg.LLM.OpMode)
	}
	if cfg.LLM.Device == "" {
		cfg.LLM.Device = "CPU"
	}
	if cfg.LLM.RunnerCommand == "" {
		cfg.LLM.RunnerCommand = "python"
	}
	if cfg.LLM.RunnerScript == "" {
		cfg.LLM.RunnerScript = "scripts/run_llm.py"
	}
	if cfg.LLM.ModelDir == "" {
		cfg.LLM.ModelDir = "llmModel"
	}

	// Relative paths resolve against the config file location.
	for _, p := range []*string{&cfg.LLM.ModelDir, &cfg.LLM.RunnerScript} {
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(filepath.Dir(absPath), *p)
		}
	}

	return &cfg, nil
}
