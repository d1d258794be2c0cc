package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                  = 0
	CodeBadRequest          = 40000
	CodeMessageEmpty        = 40001
	CodeUnauthorized        = 40100
	CodeInvalidCredentials  = 40101
	CodeSessionNotFound     = 40401
	CodeSessionBusy         = 40901
	CodeTooManyAttempts     = 42901
	CodeQuotaExceeded       = 42902
	CodeInternalServer      = 50000
	CodeUpstream            = 50201
	CodeLibraryUnavailable  = 50301
	CodeDependencyUnhealthy = 50302
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData is Error with a payload, for failures that still carry state.
func ErrorWithData(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}
