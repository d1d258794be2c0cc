package ai

import (
	"context"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	CapabilityGenerateContent = "generateContent"
)

// DocumentState is the activation state of an uploaded document.
type DocumentState string

const (
	StatePending DocumentState = "pending"
	StateActive  DocumentState = "active"
	StateFailed  DocumentState = "failed"
)

// Document is a handle to a file registered with the generation service.
type Document struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"display_name"`
	URI         string        `json:"uri,omitempty"`
	MIMEType    string        `json:"mime_type"`
	State       DocumentState `json:"state"`
	Error       string        `json:"error,omitempty"`

	// Text carries locally extracted content for backends that inline
	// documents into the prompt instead of referencing remote files.
	Text string `json:"-"`
}

func (d Document) Active() bool { return d.State == StateActive }

type Model struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

func (m Model) Supports(capability string) bool {
	for _, c := range m.Capabilities {
		if strings.EqualFold(c, capability) {
			return true
		}
	}
	return false
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model             string
	SystemInstruction string
	Documents         []Document
	History           []ChatMessage
	Prompt            string
}

// DocumentStore is the file half of the generation service.
type DocumentStore interface {
	Upload(ctx context.Context, path, mimeType string) (*Document, error)
	GetDocument(ctx context.Context, name string) (*Document, error)
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]Model, error)
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	GenerateStream(ctx context.Context, req GenerateRequest, onChunk func(chunk string) error) (string, error)
}

// Backend is everything the application consumes from the remote service.
type Backend interface {
	DocumentStore
	ModelLister
	Generator
}
