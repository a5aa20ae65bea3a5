package llm

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"vericode/internal/config"
)

// Mode partitions model descriptors by the backend that serves them.
type Mode string

const (
	ModeCloud Mode = "cloud"
	ModeLocal Mode = "local"
	ModeBoth  Mode = "both"
)

// ModeFromString normalizes a configured operating mode.
func ModeFromString(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case config.OpModeLocal:
		return ModeLocal
	case config.OpModeBoth:
		return ModeBoth
	default:
		return ModeCloud
	}
}

// ModelDescriptor identifies one selectable inference backend. Path is
// set only for local models and points at the model artifact on disk.
type ModelDescriptor struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Mode        Mode   `json:"type"`
	Path        string `json:"path,omitempty"`
}

// Registry holds the static model lists. List order is significant: the
// first entry of a mode is that mode's default.
type Registry struct {
	cloud []ModelDescriptor
	local []ModelDescriptor
	log   *zap.Logger
}

// NewRegistry builds the registry, resolving local artifact paths against
// modelDir.
func NewRegistry(modelDir string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cloud: []ModelDescriptor{
			{Name: "gemini-pro", DisplayName: "Gemini Pro", Mode: ModeCloud},
			{Name: "gemini-2.0-flash", DisplayName: "Gemini 2.0 Flash", Mode: ModeCloud},
			{Name: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash", Mode: ModeCloud},
		},
		local: []ModelDescriptor{
			{
				Name:        "phi-3-mini",
				DisplayName: "Local (Phi-3 Mini)",
				Mode:        ModeLocal,
				Path:        filepath.Join(modelDir, "Phi-3-mini-4k-instruct.Q4_0.gguf"),
			},
		},
		log: logger,
	}
}

// Models returns the ordered descriptor list for the mode. ModeBoth
// concatenates cloud then local.
func (r *Registry) Models(mode Mode) []ModelDescriptor {
	var src []ModelDescriptor
	switch mode {
	case ModeLocal:
		src = r.local
	case ModeBoth:
		src = append(append([]ModelDescriptor{}, r.cloud...), r.local...)
		return src
	default:
		src = r.cloud
	}
	out := make([]ModelDescriptor, len(src))
	copy(out, src)
	return out
}

// Resolve looks a model up by exact name within the mode's list. Unknown
// names fall back to the mode's first descriptor rather than failing; the
// substitution is logged so a stale client model list is observable.
func (r *Registry) Resolve(name string, mode Mode) ModelDescriptor {
	list := r.Models(mode)
	for _, m := range list {
		if m.Name == name {
			return m
		}
	}
	if name != "" {
		r.log.Warn("unknown model, falling back to default",
			zap.String("requested", name),
			zap.String("mode", string(mode)),
			zap.String("fallback", list[0].Name))
	}
	return list[0]
}
