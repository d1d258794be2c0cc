package ai

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend talks to the Gemini API: files are uploaded to the remote
// file store and referenced by URI in generation requests.
type GeminiBackend struct {
	client *genai.Client
}

func NewGeminiBackend(ctx context.Context, apiKey, baseURL string) (*GeminiBackend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(baseURL) != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

func (b *GeminiBackend) Upload(ctx context.Context, path, mimeType string) (*Document, error) {
	file, err := b.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s failed: %w", filepath.Base(path), classifyGeminiError(err))
	}
	return documentFromFile(file), nil
}

func (b *GeminiBackend) GetDocument(ctx context.Context, name string) (*Document, error) {
	file, err := b.client.Files.Get(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("get file %s failed: %w", name, classifyGeminiError(err))
	}
	return documentFromFile(file), nil
}

func (b *GeminiBackend) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	for m, err := range b.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models failed: %w", classifyGeminiError(err))
		}
		models = append(models, Model{Name: m.Name, Capabilities: m.SupportedActions})
	}
	return models, nil
}

func (b *GeminiBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, req.Model, geminiContents(req), geminiConfig(req))
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", classifyGeminiError(err))
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Text(), nil
}

func (b *GeminiBackend) GenerateStream(
	ctx context.Context,
	req GenerateRequest,
	onChunk func(chunk string) error,
) (string, error) {
	var full strings.Builder
	for resp, err := range b.client.Models.GenerateContentStream(ctx, req.Model, geminiContents(req), geminiConfig(req)) {
		if err != nil {
			return "", fmt.Errorf("stream content failed: %w", classifyGeminiError(err))
		}
		text := resp.Text()
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

func geminiConfig(req GenerateRequest) *genai.GenerateContentConfig {
	if strings.TrimSpace(req.SystemInstruction) == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
	}
}

// geminiContents replays the history and then sends one user turn holding
// every document reference followed by the new prompt.
func geminiContents(req GenerateRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, msg := range req.History {
		role := genai.Role(genai.RoleUser)
		if msg.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	parts := make([]*genai.Part, 0, len(req.Documents)+1)
	for _, doc := range req.Documents {
		parts = append(parts, genai.NewPartFromURI(doc.URI, doc.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	return append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
}

func documentFromFile(file *genai.File) *Document {
	doc := &Document{
		Name:        file.Name,
		DisplayName: file.DisplayName,
		URI:         file.URI,
		MIMEType:    file.MIMEType,
		State:       geminiState(file.State),
	}
	if file.Error != nil {
		doc.Error = file.Error.Message
	}
	return doc
}

func geminiState(state genai.FileState) DocumentState {
	switch state {
	case genai.FileStateActive:
		return StateActive
	case genai.FileStateFailed:
		return StateFailed
	default:
		return StatePending
	}
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if kind := classifyStatus(apiErr.Code); kind != nil {
			return fmt.Errorf("%w: %s", kind, apiErr.Message)
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		if kind := classifyStatus(apiErrPtr.Code); kind != nil {
			return fmt.Errorf("%w: %s", kind, apiErrPtr.Message)
		}
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}
