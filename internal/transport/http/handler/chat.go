package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mentor-ai/internal/ai"
	"mentor-ai/internal/app"
	"mentor-ai/internal/transport/http/middleware"
	"mentor-ai/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid session")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.Ask(c.Request.Context(), app.AskInput{
		SessionID: sessionID,
		Content:   req.Content,
	})
	if err != nil {
		status, code, message := chatError(err)
		response.Error(c, status, code, message)
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) StreamMessage(c *gin.Context) {
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid session")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	result, err := h.chatService.Stream(c.Request.Context(), app.AskInput{
		SessionID: sessionID,
		Content:   req.Content,
	}, func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		_, code, message := chatError(err)
		if _, writeErr := c.Writer.Write([]byte(fmt.Sprintf("event: error\ndata: %d %s\n\n", code, sanitizeSSE(message)))); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + sanitizeSSE(result.Answer) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid session")
		return
	}

	history, err := h.chatService.History(c.Request.Context(), sessionID)
	if err != nil {
		status, code, message := chatError(err)
		response.Error(c, status, code, message)
		return
	}
	response.OK(c, history)
}

func (h *ChatHandler) ClearHistory(c *gin.Context) {
	sessionID, ok := getSessionIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid session")
		return
	}

	if err := h.chatService.Clear(c.Request.Context(), sessionID); err != nil {
		status, code, message := chatError(err)
		response.Error(c, status, code, message)
		return
	}
	response.OK(c, gin.H{"cleared_session_id": sessionID})
}

// chatError maps service errors to HTTP status, envelope code and message.
func chatError(err error) (int, int, string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest, response.CodeBadRequest, err.Error()
	case errors.Is(err, app.ErrMessageEmpty):
		return http.StatusBadRequest, response.CodeMessageEmpty, err.Error()
	case errors.Is(err, app.ErrSessionNotFound):
		return http.StatusNotFound, response.CodeSessionNotFound, err.Error()
	case errors.Is(err, app.ErrSessionBusy):
		return http.StatusConflict, response.CodeSessionBusy, err.Error()
	case errors.Is(err, app.ErrLibraryUnavailable):
		return http.StatusServiceUnavailable, response.CodeLibraryUnavailable, app.ErrLibraryUnavailable.Error()
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, response.CodeQuotaExceeded, "generation quota exceeded, try again later"
	case errors.Is(err, app.ErrGeneration):
		return http.StatusBadGateway, response.CodeUpstream, err.Error()
	default:
		return http.StatusInternalServerError, response.CodeInternalServer, "answer question failed"
	}
}

func getSessionIDFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.ContextSessionIDKey)
	if !exists {
		return "", false
	}
	sessionID, ok := v.(string)
	return sessionID, ok && sessionID != ""
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
