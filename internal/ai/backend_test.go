package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]error{
		429: ErrQuotaExceeded,
		503: ErrTransient,
		500: ErrTransient,
		408: ErrTransient,
		400: ErrRejected,
		404: ErrRejected,
		200: nil,
	}
	for status, want := range cases {
		if got := classifyStatus(status); got != want {
			t.Errorf("classifyStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(fmt.Errorf("upload: %w", ErrTransient)) {
		t.Error("wrapped ErrTransient should be transient")
	}
	if !IsTransient(fmt.Errorf("upload: %w", ErrQuotaExceeded)) {
		t.Error("quota errors should be retried")
	}
	if IsTransient(fmt.Errorf("upload: %w", ErrRejected)) {
		t.Error("rejections are permanent")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}
}

func TestClassifyOpenAIError_Quota(t *testing.T) {
	err := classifyOpenAIError(&openai.APIError{HTTPStatusCode: 429, Message: "quota"})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestClassifyGeminiError_Quota(t *testing.T) {
	err := classifyGeminiError(genai.APIError{Code: 429, Message: "RESOURCE_EXHAUSTED"})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestGeminiState(t *testing.T) {
	if geminiState(genai.FileStateActive) != StateActive {
		t.Error("ACTIVE should map to active")
	}
	if geminiState(genai.FileStateFailed) != StateFailed {
		t.Error("FAILED should map to failed")
	}
	if geminiState(genai.FileStateProcessing) != StatePending {
		t.Error("PROCESSING should map to pending")
	}
}

func TestGeminiContents_DocumentsThenPrompt(t *testing.T) {
	contents := geminiContents(GenerateRequest{
		Documents: []Document{
			{URI: "https://files/1", MIMEType: "application/pdf"},
			{URI: "https://files/2", MIMEType: "application/pdf"},
		},
		History: []ChatMessage{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		},
		Prompt: "how many sets?",
	})
	if len(contents) != 3 {
		t.Fatalf("len(contents) = %d, want 3", len(contents))
	}
	if contents[1].Role != string(genai.RoleModel) {
		t.Errorf("assistant history role = %q, want model", contents[1].Role)
	}
	last := contents[2]
	if len(last.Parts) != 3 {
		t.Fatalf("last turn parts = %d, want 3", len(last.Parts))
	}
	if last.Parts[0].FileData == nil || last.Parts[0].FileData.FileURI != "https://files/1" {
		t.Errorf("first part should reference the first document")
	}
	if last.Parts[2].Text != "how many sets?" {
		t.Errorf("prompt part = %q", last.Parts[2].Text)
	}
}

func TestOpenAIMessages_InlinesDocuments(t *testing.T) {
	msgs := openAIMessages(GenerateRequest{
		SystemInstruction: "Answer only from the files.",
		Documents:         []Document{{DisplayName: "schoenfeld.pdf", Text: "volume drives hypertrophy"}},
		History:           []ChatMessage{{Role: RoleAssistant, Content: "Hello!"}},
		Prompt:            "what drives growth?",
	})
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first role = %q", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "schoenfeld.pdf") || !strings.Contains(msgs[0].Content, "volume drives hypertrophy") {
		t.Errorf("system message should inline the document, got %q", msgs[0].Content)
	}
	if msgs[1].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("history role = %q", msgs[1].Role)
	}
	if msgs[2].Content != "what drives growth?" {
		t.Errorf("prompt = %q", msgs[2].Content)
	}
}

func TestOpenAIBackend_UploadRegistersHandle(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "guide.txt")
	empty := filepath.Join(dir, "blank.txt")
	if err := os.WriteFile(full, []byte("train close to failure"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(empty, []byte("   "), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewOpenAIBackend("sk-test", "http://127.0.0.1:0/v1")
	doc, err := b.Upload(context.Background(), full, "text/plain")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.State != StateActive || doc.DisplayName != "guide.txt" {
		t.Errorf("doc = %+v", doc)
	}
	got, err := b.GetDocument(context.Background(), doc.Name)
	if err != nil || got.Text != "train close to failure" {
		t.Fatalf("GetDocument = %+v, %v", got, err)
	}

	blank, err := b.Upload(context.Background(), empty, "text/plain")
	if err != nil {
		t.Fatalf("Upload blank: %v", err)
	}
	if blank.State != StateFailed {
		t.Errorf("blank document state = %q, want failed", blank.State)
	}

	if _, err := b.Upload(context.Background(), filepath.Join(dir, "cover.png"), "image/png"); !errors.Is(err, ErrRejected) {
		t.Errorf("unsupported file should be rejected, got %v", err)
	}
}

func TestTruncateUTF8(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"glúteos", 20, "glúteos"},
		{"glúteos", 3, "gl"},
		{"glúteos", 4, "glú"},
		{"ab", 2, "ab"},
		{"日本", 1, ""},
	}
	for _, tc := range cases {
		got := truncateUTF8(tc.in, tc.limit)
		if got != tc.want {
			t.Errorf("truncateUTF8(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncateUTF8(%q, %d) returned invalid UTF-8", tc.in, tc.limit)
		}
	}
}
