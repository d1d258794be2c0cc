package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mentor-ai/internal/app"
	"mentor-ai/internal/transport/http/response"
)

type LibraryHandler struct {
	chatService *app.ChatService
}

func NewLibraryHandler(chatService *app.ChatService) *LibraryHandler {
	return &LibraryHandler{chatService: chatService}
}

func (h *LibraryHandler) Status(c *gin.Context) {
	response.OK(c, h.chatService.LibraryStatus())
}

func (h *LibraryHandler) Reload(c *gin.Context) {
	status, err := h.chatService.ReloadLibrary(c.Request.Context())
	if err != nil {
		if errors.Is(err, app.ErrLibraryUnavailable) {
			response.ErrorWithData(c, http.StatusServiceUnavailable, response.CodeLibraryUnavailable, err.Error(), status)
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reload library failed")
		return
	}
	response.OK(c, status)
}
