package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the unified envelope for every JSON endpoint except the
// payment webhook, which answers in the processor's own format.
type Response struct {
	Code    int         `json:"code"`    // stable business code, 0 = ok
	Message string      `json:"message"` // human-readable, localizable upstream
	Data    interface{} `json:"data"`
}

// Success writes a 200 envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error writes an envelope with an explicit HTTP status.
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// Fail writes a business failure: HTTP 200 with a non-zero code. Used for
// user-facing outcomes that are not faults (expired coupon, already-used
// referral).
func Fail(c *gin.Context, errCode int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}
