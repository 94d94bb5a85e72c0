package utils

import "github.com/gin-gonic/gin"

// JSONResponse is the envelope every API handler answers with. Code 0
// means success; non-zero codes group failures by area (401xx auth,
// 404xx lookups, 429xx throttling, 500xx persistence) so clients can
// branch without parsing messages.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes the envelope with an explicit HTTP status. Handlers
// normally go through Success or Error instead.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success answers 200 with code 0 and the given payload.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error answers with the given HTTP status, a machine-readable code and
// a client-safe message. No data payload accompanies errors.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
