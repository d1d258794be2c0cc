package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mentor-ai/internal/ai"
	"mentor-ai/internal/library"
	"mentor-ai/internal/model"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrMessageEmpty       = errors.New("message content is empty")
	ErrSessionBusy        = errors.New("a question is already being answered for this session")
	ErrLibraryUnavailable = errors.New("system disconnected: knowledge base unavailable")
	ErrGeneration         = errors.New("generate answer failed")
)

const emptyAnswerNotice = "The model returned an empty response."

type LibraryProvider interface {
	Get(ctx context.Context) (*library.Result, error)
	Invalidate()
	Snapshot() library.Snapshot
}

type ModelSource interface {
	Resolve(ctx context.Context) string
}

type TranscriptPublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type ChatConfig struct {
	SystemInstruction string
	MaxContext        int
}

type ChatService struct {
	sessions  SessionStore
	library   LibraryProvider
	generator ai.Generator
	models    ModelSource
	publisher TranscriptPublisher
	cfg       ChatConfig
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

type AskInput struct {
	SessionID string
	Content   string
}

type AskResult struct {
	Answer    string       `json:"answer"`
	Model     string       `json:"model"`
	Documents []string     `json:"documents"`
	Turns     []model.Turn `json:"turns"`
}

type LibraryStatus struct {
	Online    bool      `json:"online"`
	Syncing   bool      `json:"syncing"`
	Documents []string  `json:"documents"`
	Report    string    `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
	SyncedAt  time.Time `json:"synced_at,omitempty"`
	Runs      int       `json:"runs"`
}

func NewChatService(
	sessions SessionStore,
	lib LibraryProvider,
	generator ai.Generator,
	models ModelSource,
	publisher TranscriptPublisher,
	cfg ChatConfig,
	logger *slog.Logger,
) *ChatService {
	if cfg.MaxContext <= 0 {
		cfg.MaxContext = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		sessions:  sessions,
		library:   lib,
		generator: generator,
		models:    models,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
	}
}

// Ask answers a question in one call.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	return s.answer(ctx, input, func(req ai.GenerateRequest) (string, error) {
		return s.generator.Generate(ctx, req)
	})
}

// Stream answers a question, handing fragments to onChunk as they arrive.
// The transcript is only touched once the whole answer is in.
func (s *ChatService) Stream(ctx context.Context, input AskInput, onChunk func(chunk string) error) (*AskResult, error) {
	return s.answer(ctx, input, func(req ai.GenerateRequest) (string, error) {
		return s.generator.GenerateStream(ctx, req, onChunk)
	})
}

func (s *ChatService) answer(
	ctx context.Context,
	input AskInput,
	generate func(ai.GenerateRequest) (string, error),
) (*AskResult, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	if !s.acquire(input.SessionID) {
		return nil, ErrSessionBusy
	}
	defer s.release(input.SessionID)

	session, err := s.loadSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	lib, err := s.library.Get(ctx)
	if err != nil {
		s.logger.Warn("library unavailable", "session_id", session.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLibraryUnavailable, err)
	}
	if len(lib.Documents) == 0 {
		return nil, ErrLibraryUnavailable
	}

	modelName := s.models.Resolve(ctx)
	req := ai.GenerateRequest{
		Model:             modelName,
		SystemInstruction: s.cfg.SystemInstruction,
		Documents:         lib.Documents,
		History:           promptHistory(session.RecentTurns(s.cfg.MaxContext)),
		Prompt:            content,
	}

	started := time.Now()
	answer, err := generate(req)
	if err != nil {
		s.logger.Error("generate answer failed",
			"session_id", session.ID, "model", modelName, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyAnswerNotice
	}
	s.logger.Info("answered",
		"session_id", session.ID, "model", modelName,
		"documents", len(lib.Documents), "elapsed", time.Since(started))

	// Logout may have run while the model was answering.
	session, err = s.loadSession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	turns := []model.Turn{
		{Role: model.RoleUser, Content: content, CreatedAt: now},
		{Role: model.RoleAssistant, Content: answer, CreatedAt: now},
	}
	session.Append(turns...)
	session.Library = lib.Names()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session failed: %w", err)
	}
	s.archive(ctx, session, turns)

	return &AskResult{
		Answer:    answer,
		Model:     modelName,
		Documents: lib.Names(),
		Turns:     session.Transcript,
	}, nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]model.Turn, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Transcript, nil
}

// Clear empties the transcript. The greeting is not re-added.
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	if !s.acquire(sessionID) {
		return ErrSessionBusy
	}
	defer s.release(sessionID)

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Transcript = []model.Turn{}
	session.UpdatedAt = time.Now()
	if err := s.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session failed: %w", err)
	}
	return nil
}

// LibraryStatus reports the cached library without triggering a sync.
func (s *ChatService) LibraryStatus() LibraryStatus {
	snap := s.library.Snapshot()
	status := LibraryStatus{
		Documents: []string{},
		SyncedAt:  snap.SyncedAt,
		Runs:      snap.Runs,
		Syncing:   snap.Syncing,
	}
	if snap.Result != nil {
		status.Documents = snap.Result.Names()
		status.Report = snap.Result.Report()
		status.Online = len(snap.Result.Documents) > 0
	}
	if snap.LastErr != nil {
		status.Error = snap.LastErr.Error()
	}
	return status
}

// ReloadLibrary drops the cached library and syncs again.
func (s *ChatService) ReloadLibrary(ctx context.Context) (LibraryStatus, error) {
	s.library.Invalidate()
	if _, err := s.library.Get(ctx); err != nil {
		return s.LibraryStatus(), fmt.Errorf("%w: %v", ErrLibraryUnavailable, err)
	}
	return s.LibraryStatus(), nil
}

func (s *ChatService) loadSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	session, found, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *ChatService) archive(ctx context.Context, session *model.Session, turns []model.Turn) {
	if s.publisher == nil {
		return
	}
	for _, turn := range turns {
		msg := model.Message{
			SessionID: session.ID,
			Username:  session.Username,
			Role:      turn.Role,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Error("publish transcript turn failed", "session_id", session.ID, "error", err)
		}
	}
}

func (s *ChatService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *ChatService) release(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}

// promptHistory maps transcript turns to backend messages. Leading assistant
// turns (the greeting) are dropped so the history opens with the user.
func promptHistory(turns []model.Turn) []ai.ChatMessage {
	start := 0
	for start < len(turns) && turns[start].Role == model.RoleAssistant {
		start++
	}
	messages := make([]ai.ChatMessage, 0, len(turns)-start)
	for _, turn := range turns[start:] {
		role := ai.RoleUser
		if turn.Role == model.RoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.ChatMessage{Role: role, Content: turn.Content})
	}
	return messages
}
