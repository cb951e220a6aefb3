package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Issue is one validation problem, addressed by its JSON path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error bodies are a bare {"message": ...} so the 401 for a bad password is
// byte-identical to the 401 for an unknown email.
func RespondError(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}

func RespondValidationFailed(ctx *gin.Context, issues []Issue) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"message": "Validation failed",
		"issues":  issues,
	})
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message)
}

func RespondInternal(ctx *gin.Context) {
	RespondError(ctx, http.StatusInternalServerError, "Internal server error")
}
