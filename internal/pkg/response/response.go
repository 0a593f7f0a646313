package response

import "github.com/gin-gonic/gin"

// Success writes message alongside the given payload fields.
func Success(c *gin.Context, statusCode int, message string, data gin.H) {
	body := gin.H{}
	for k, v := range data {
		body[k] = v
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(statusCode, body)
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"message": message,
		"code":    code,
	})
}

func AbortError(c *gin.Context, statusCode int, code string, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"message": message,
		"code":    code,
	})
}
