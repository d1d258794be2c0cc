package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mentor-ai/internal/ai"
	"mentor-ai/internal/pkg/textextract"
)

var (
	ErrLibraryDirMissing = errors.New("library directory not found")
	ErrNoDocuments       = errors.New("library is empty")
	ErrNotActivated      = errors.New("document did not become active")
)

// FailureKind separates permanent rejections from retries that ran out.
type FailureKind string

const (
	FailureRejected  FailureKind = "rejected"
	FailureFailed    FailureKind = "failed"
	FailureExhausted FailureKind = "exhausted"
	FailureDeadline  FailureKind = "deadline"
)

type Failure struct {
	File   string      `json:"file"`
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
}

type Result struct {
	Documents []ai.Document `json:"documents"`
	Failures  []Failure     `json:"failures,omitempty"`
}

// Names returns the display names of the active documents.
func (r *Result) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		names = append(names, d.DisplayName)
	}
	return names
}

// Report renders the failure list, or "" when every file activated.
func (r *Result) Report() string {
	if r == nil || len(r.Failures) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		parts = append(parts, fmt.Sprintf("%s (%s: %s)", f.File, f.Kind, f.Reason))
	}
	return fmt.Sprintf("%d of %d documents unavailable: %s",
		len(r.Failures), len(r.Failures)+len(r.Documents), strings.Join(parts, "; "))
}

type Config struct {
	Dir        string
	Extensions []string
	Policy     RetryPolicy
	Clock      Clock
	Logger     *slog.Logger
	// OnProgress is called after each file is settled.
	OnProgress func(done, total int, file string)
}

// Synchronizer uploads every matching library file and waits for it to
// become usable.
type Synchronizer struct {
	store      ai.DocumentStore
	dir        string
	extensions map[string]struct{}
	policy     RetryPolicy
	clock      Clock
	logger     *slog.Logger
	onProgress func(done, total int, file string)
}

func NewSynchronizer(store ai.DocumentStore, cfg Config) *Synchronizer {
	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if ext != "" {
			exts[ext] = struct{}{}
		}
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synchronizer{
		store:      store,
		dir:        cfg.Dir,
		extensions: exts,
		policy:     cfg.Policy.normalized(),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		onProgress: cfg.OnProgress,
	}
}

func (s *Synchronizer) Dir() string { return s.dir }

// Matches reports whether name has one of the accepted extensions.
func (s *Synchronizer) Matches(name string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Scan lists the matching regular files in the library directory, sorted.
func (s *Synchronizer) Scan() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLibraryDirMissing, s.dir)
		}
		return nil, fmt.Errorf("read library directory failed: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !s.Matches(e.Name()) {
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no matching files in %s", ErrNoDocuments, s.dir)
	}
	sort.Strings(files)
	return files, nil
}

// Sync uploads every matching file and polls until each one settles.
// Individual failures never abort the run; they are collected in the result.
func (s *Synchronizer) Sync(ctx context.Context) (*Result, error) {
	files, err := s.Scan()
	if err != nil {
		return nil, err
	}

	if s.policy.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.policy.Deadline)
		defer cancel()
	}

	result := &Result{}
	for i, name := range files {
		if ctx.Err() != nil {
			result.Failures = append(result.Failures, Failure{File: name, Kind: FailureDeadline, Reason: ctx.Err().Error()})
			continue
		}

		doc, failure := s.syncFile(ctx, name)
		if failure != nil {
			s.logger.Warn("library document unavailable", "file", name, "kind", failure.Kind, "reason", failure.Reason)
			result.Failures = append(result.Failures, *failure)
		} else {
			result.Documents = append(result.Documents, *doc)
		}
		if s.onProgress != nil {
			s.onProgress(i+1, len(files), name)
		}
	}

	s.logger.Info("library sync finished", "active", len(result.Documents), "failed", len(result.Failures))
	return result, nil
}

func (s *Synchronizer) syncFile(ctx context.Context, name string) (*ai.Document, *Failure) {
	path := filepath.Join(s.dir, name)

	doc, err := s.upload(ctx, path)
	if err != nil {
		return nil, s.failure(ctx, name, err)
	}
	if doc.DisplayName == "" {
		doc.DisplayName = name
	}

	for attempt := 1; ; attempt++ {
		switch doc.State {
		case ai.StateActive:
			return doc, nil
		case ai.StateFailed:
			reason := doc.Error
			if reason == "" {
				reason = "service reported failed state"
			}
			return nil, &Failure{File: name, Kind: FailureFailed, Reason: reason}
		}
		if attempt >= s.policy.MaxAttempts {
			return nil, &Failure{
				File:   name,
				Kind:   FailureExhausted,
				Reason: fmt.Sprintf("%v after %d checks", ErrNotActivated, attempt),
			}
		}
		if err := s.clock.Sleep(ctx, s.policy.Interval); err != nil {
			return nil, s.failure(ctx, name, err)
		}

		next, err := s.store.GetDocument(ctx, doc.Name)
		if err != nil {
			if ai.IsTransient(err) && ctx.Err() == nil {
				s.logger.Debug("document status check failed, retrying", "file", name, "attempt", attempt, "error", err)
				continue
			}
			return nil, s.failure(ctx, name, err)
		}
		if next.DisplayName == "" {
			next.DisplayName = doc.DisplayName
		}
		doc = next
	}
}

func (s *Synchronizer) upload(ctx context.Context, path string) (*ai.Document, error) {
	mimeType := textextract.MIMEType(path)
	var lastErr error
	for attempt := 0; attempt <= s.policy.UploadRetries; attempt++ {
		if attempt > 0 {
			if err := s.clock.Sleep(ctx, s.policy.Interval); err != nil {
				return nil, err
			}
		}
		doc, err := s.store.Upload(ctx, path, mimeType)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !ai.IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}
		s.logger.Debug("upload failed, retrying", "file", filepath.Base(path), "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (s *Synchronizer) failure(ctx context.Context, name string, err error) *Failure {
	switch {
	case ctx.Err() != nil:
		return &Failure{File: name, Kind: FailureDeadline, Reason: ctx.Err().Error()}
	case ai.IsTransient(err):
		return &Failure{File: name, Kind: FailureExhausted, Reason: err.Error()}
	default:
		return &Failure{File: name, Kind: FailureRejected, Reason: err.Error()}
	}
}
