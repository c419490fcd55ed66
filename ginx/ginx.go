// Package ginx renders svckit envelopes from gin handlers
package ginx

import (
	"github.com/gin-gonic/gin"

	"github.com/fernandezvara/svckit"
)

// Error aborts the request and writes err as a JSON error envelope
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	write(c, svckit.ResponseFor(err))
	c.Abort()
}

// JSON writes data as a success envelope
func JSON(c *gin.Context, status int, data any) {
	write(c, svckit.JSONResponse(status, data))
}

// Errors renders the last error attached with c.Error once the handler
// chain returns, unless a response was already written.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		write(c, svckit.ResponseFor(c.Errors.Last().Err))
	}
}

func write(c *gin.Context, resp *svckit.Response) {
	for k := range resp.Header {
		c.Header(k, resp.Header.Get(k))
	}
	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), resp.Body)
}
