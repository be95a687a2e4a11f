package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Error sends a plain error response.
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

// ErrorWithCode sends an error response carrying a machine-readable code.
func ErrorWithCode(c *gin.Context, statusCode int, message, code string) {
	c.JSON(statusCode, gin.H{"error": message, "code": code})
}

// ValidationError turns a binding failure into a 400 with per-field detail.
func ValidationError(c *gin.Context, err error) {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	Error(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "is too short (min " + fe.Param() + ")"
	case "max":
		return "is too long (max " + fe.Param() + ")"
	default:
		return "is invalid"
	}
}
