package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docwise-client/internal/shared/telemetry"
)

// DetailResponse is the error body the DocWise API returns.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// ValidationIssue is one entry of a 422 detail list.
type ValidationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationResponse is the 422 error body.
type ValidationResponse struct {
	Detail []ValidationIssue `json:"detail"`
}

// Error logs and aborts with a {"detail": message} body.
func Error(c *gin.Context, status int, message string) {
	logError(c, status, message)
	c.AbortWithStatusJSON(status, DetailResponse{Detail: message})
}

// Validation aborts with 422 and a detail list.
func Validation(c *gin.Context, issues ...ValidationIssue) {
	msg := ""
	if len(issues) > 0 {
		msg = issues[0].Msg
	}
	logError(c, http.StatusUnprocessableEntity, msg)
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ValidationResponse{Detail: issues})
}

func logError(c *gin.Context, status int, message string) {
	fields := map[string]any{
		"status":     status,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)
}
