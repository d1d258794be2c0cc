package ai

import (
	"context"
	"errors"
	"testing"
)

type fakeLister struct {
	models []Model
	err    error
	calls  int
}

func (f *fakeLister) ListModels(ctx context.Context) ([]Model, error) {
	f.calls++
	return f.models, f.err
}

var catalog = []Model{
	{Name: "models/embedding-001", Capabilities: []string{"embedContent"}},
	{Name: "models/gemini-1.5-pro", Capabilities: []string{"generateContent"}},
	{Name: "models/gemini-flash-embed", Capabilities: []string{"embedContent"}},
	{Name: "models/gemini-2.0-flash", Capabilities: []string{"generateContent", "countTokens"}},
	{Name: "models/gemini-2.5-flash", Capabilities: []string{"generateContent"}},
}

func TestSelectModel(t *testing.T) {
	tests := []struct {
		name       string
		capability string
		tag        string
		want       string
		wantOK     bool
	}{
		{"first flash with generate", CapabilityGenerateContent, "flash", "models/gemini-2.0-flash", true},
		{"tag is case-insensitive", CapabilityGenerateContent, "FLASH", "models/gemini-2.0-flash", true},
		{"capability filters out embed", "embedContent", "flash", "models/gemini-flash-embed", true},
		{"no match", CapabilityGenerateContent, "nano", "", false},
		{"empty tag takes first capable", CapabilityGenerateContent, "", "models/gemini-1.5-pro", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectModel(catalog, tt.capability, tt.tag)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SelectModel = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestModelResolver_Resolve(t *testing.T) {
	cfg := ModelResolverConfig{Capability: CapabilityGenerateContent, Tag: "flash", Fallback: "models/gemini-1.5-flash"}

	t.Run("discovers and memoizes", func(t *testing.T) {
		lister := &fakeLister{models: catalog}
		r := NewModelResolver(lister, cfg, nil)
		if got := r.Resolve(context.Background()); got != "models/gemini-2.0-flash" {
			t.Fatalf("Resolve = %q", got)
		}
		r.Resolve(context.Background())
		if lister.calls != 1 {
			t.Errorf("ListModels calls = %d, want 1", lister.calls)
		}
	})

	t.Run("list failure falls back", func(t *testing.T) {
		lister := &fakeLister{err: errors.New("boom")}
		r := NewModelResolver(lister, cfg, nil)
		if got := r.Resolve(context.Background()); got != cfg.Fallback {
			t.Fatalf("Resolve = %q, want fallback", got)
		}
		r.Resolve(context.Background())
		if lister.calls != 2 {
			t.Errorf("fallback should not be memoized, calls = %d", lister.calls)
		}
	})

	t.Run("no match falls back", func(t *testing.T) {
		r := NewModelResolver(&fakeLister{models: catalog[:2]}, cfg, nil)
		if got := r.Resolve(context.Background()); got != cfg.Fallback {
			t.Fatalf("Resolve = %q, want fallback", got)
		}
	})

	t.Run("explicit model skips discovery", func(t *testing.T) {
		lister := &fakeLister{models: catalog}
		explicit := cfg
		explicit.Explicit = "models/custom"
		r := NewModelResolver(lister, explicit, nil)
		if got := r.Resolve(context.Background()); got != "models/custom" {
			t.Fatalf("Resolve = %q", got)
		}
		if lister.calls != 0 {
			t.Errorf("ListModels should not be called")
		}
	})
}
