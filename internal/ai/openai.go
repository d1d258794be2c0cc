package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"mentor-ai/internal/pkg/textextract"
)

// maxInlineDocumentBytes caps how much of one document is inlined into the
// system message.
const maxInlineDocumentBytes = 200 * 1024

// OpenAIBackend targets OpenAI-compatible chat endpoints. Those endpoints have
// no generic file grounding, so uploads are extracted locally and registered
// as in-process handles whose text is inlined into the system message.
type OpenAIBackend struct {
	client *openai.Client

	mu   sync.RWMutex
	docs map[string]Document
}

func NewOpenAIBackend(apiKey, baseURL string) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAIBackend{
		client: openai.NewClientWithConfig(cfg),
		docs:   make(map[string]Document),
	}
}

func (b *OpenAIBackend) Upload(ctx context.Context, path, mimeType string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := textextract.File(path)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s: %v", ErrRejected, filepath.Base(path), err)
	}

	doc := Document{
		Name:        "local/" + uuid.NewString(),
		DisplayName: filepath.Base(path),
		MIMEType:    mimeType,
		State:       StateActive,
		Text:        strings.TrimSpace(text),
	}
	if doc.Text == "" {
		doc.State = StateFailed
		doc.Error = "document contains no extractable text"
	}

	b.mu.Lock()
	b.docs[doc.Name] = doc
	b.mu.Unlock()
	return &doc, nil
}

func (b *OpenAIBackend) GetDocument(ctx context.Context, name string) (*Document, error) {
	b.mu.RLock()
	doc, ok := b.docs[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown document %s", ErrRejected, name)
	}
	return &doc, nil
}

// ListModels reports every model with the generate capability; the
// OpenAI models endpoint does not describe capabilities.
func (b *OpenAIBackend) ListModels(ctx context.Context) ([]Model, error) {
	list, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models failed: %w", classifyOpenAIError(err))
	}
	models := make([]Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, Model{Name: m.ID, Capabilities: []string{CapabilityGenerateContent}})
	}
	return models, nil
}

func (b *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: openAIMessages(req),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", classifyOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) GenerateStream(
	ctx context.Context,
	req GenerateRequest,
	onChunk func(chunk string) error,
) (string, error) {
	stream, err := b.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: openAIMessages(req),
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion stream failed: %w", classifyOpenAIError(err))
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("receive stream chunk failed: %w", classifyOpenAIError(err))
		}
		if len(resp.Choices) == 0 {
			continue
		}
		text := resp.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	return full.String(), nil
}

func openAIMessages(req GenerateRequest) []openai.ChatCompletionMessage {
	var system strings.Builder
	system.WriteString(strings.TrimSpace(req.SystemInstruction))
	for i, doc := range req.Documents {
		text := truncateUTF8(doc.Text, maxInlineDocumentBytes)
		fmt.Fprintf(&system, "\n\n=== Document %d: %s ===\n%s", i+1, doc.DisplayName, text)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system.String(),
	})
	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
}

// truncateUTF8 cuts s to at most limit bytes without splitting a rune.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if kind := classifyStatus(apiErr.HTTPStatusCode); kind != nil {
			return fmt.Errorf("%w: %s", kind, apiErr.Message)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if kind := classifyStatus(reqErr.HTTPStatusCode); kind != nil {
			return fmt.Errorf("%w: %v", kind, reqErr.Err)
		}
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}
