package ai

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// SelectModel returns the first model that supports capability and whose
// name contains tag (case-insensitive).
func SelectModel(models []Model, capability, tag string) (string, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, m := range models {
		if capability != "" && !m.Supports(capability) {
			continue
		}
		if tag != "" && !strings.Contains(strings.ToLower(m.Name), tag) {
			continue
		}
		return m.Name, true
	}
	return "", false
}

type ModelResolverConfig struct {
	// Explicit skips discovery entirely when set.
	Explicit   string
	Capability string
	Tag        string
	Fallback   string
}

// ModelResolver picks the model identifier to target. Discovery is a single
// best-effort call; any failure resolves to the fallback.
type ModelResolver struct {
	lister ModelLister
	cfg    ModelResolverConfig
	logger *slog.Logger

	mu       sync.Mutex
	resolved string
}

func NewModelResolver(lister ModelLister, cfg ModelResolverConfig, logger *slog.Logger) *ModelResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelResolver{lister: lister, cfg: cfg, logger: logger}
}

func (r *ModelResolver) Resolve(ctx context.Context) string {
	if explicit := strings.TrimSpace(r.cfg.Explicit); explicit != "" {
		return explicit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved != "" {
		return r.resolved
	}

	models, err := r.lister.ListModels(ctx)
	if err != nil {
		r.logger.Warn("model discovery failed, using fallback", "fallback", r.cfg.Fallback, "error", err)
		return r.cfg.Fallback
	}
	name, ok := SelectModel(models, r.cfg.Capability, r.cfg.Tag)
	if !ok {
		r.logger.Info("no model matched, using fallback", "tag", r.cfg.Tag, "fallback", r.cfg.Fallback)
		return r.cfg.Fallback
	}
	r.resolved = name
	r.logger.Info("model resolved", "model", name)
	return name
}
