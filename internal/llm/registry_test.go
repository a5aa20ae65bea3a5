package llm

import "testing"

func TestModelsFiltering(t *testing.T) {
	r := NewRegistry("/models", nil)

	cloud := r.Models(ModeCloud)
	if len(cloud) != 3 {
		t.Fatalf("expected 3 cloud models, got %d", len(cloud))
	}
	if cloud[0].Name != "gemini-pro" {
		t.Fatalf("expected gemini-pro first, got %s", cloud[0].Name)
	}
	for _, m := range cloud {
		if m.Mode != ModeCloud {
			t.Fatalf("cloud list contains %s model %s", m.Mode, m.Name)
		}
		if m.Path != "" {
			t.Fatalf("cloud model %s should not carry a path", m.Name)
		}
	}

	local := r.Models(ModeLocal)
	if len(local) != 1 {
		t.Fatalf("expected 1 local model, got %d", len(local))
	}
	if local[0].Name != "phi-3-mini" || local[0].Path == "" {
		t.Fatalf("unexpected local descriptor: %+v", local[0])
	}

	both := r.Models(ModeBoth)
	if len(both) != len(cloud)+len(local) {
		t.Fatalf("expected %d models for both, got %d", len(cloud)+len(local), len(both))
	}
	if both[0].Name != "gemini-pro" || both[len(both)-1].Name != "phi-3-mini" {
		t.Fatalf("both mode should list cloud then local, got %s..%s", both[0].Name, both[len(both)-1].Name)
	}
}

func TestResolveExactMatch(t *testing.T) {
	r := NewRegistry("/models", nil)
	m := r.Resolve("gemini-1.5-flash", ModeCloud)
	if m.Name != "gemini-1.5-flash" {
		t.Fatalf("expected exact match, got %s", m.Name)
	}
}

func TestResolveUnknownFallsBackToFirst(t *testing.T) {
	r := NewRegistry("/models", nil)

	m := r.Resolve("nonexistent-model", ModeCloud)
	if m.Name != "gemini-pro" {
		t.Fatalf("expected fallback to first cloud model, got %s", m.Name)
	}

	m = r.Resolve("gemini-pro", ModeLocal)
	if m.Name != "phi-3-mini" {
		t.Fatalf("cloud name in local mode should fall back to first local model, got %s", m.Name)
	}

	m = r.Resolve("", ModeCloud)
	if m.Name != "gemini-pro" {
		t.Fatalf("empty name should resolve to default, got %s", m.Name)
	}
}

func TestModeFromString(t *testing.T) {
	cases := map[string]Mode{
		"cloud":   ModeCloud,
		"local":   ModeLocal,
		"LOCAL":   ModeLocal,
		"both":    ModeBoth,
		"":        ModeCloud,
		"unknown": ModeCloud,
	}
	for in, want := range cases {
		if got := ModeFromString(in); got != want {
			t.Fatalf("ModeFromString(%q) = %s, want %s", in, got, want)
		}
	}
}
