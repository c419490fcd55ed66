// Package echox renders svckit envelopes from echo handlers
package echox

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fernandezvara/svckit"
)

// HTTPErrorHandler is an echo.HTTPErrorHandler that writes JSON error
// envelopes. Install it with e.HTTPErrorHandler = echox.HTTPErrorHandler.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var resp *svckit.Response
	var he *echo.HTTPError
	if errors.As(err, &he) {
		resp = svckit.ErrorResponse(httpError{he})
	} else {
		resp = svckit.ResponseFor(err)
	}

	for k, vs := range resp.Header {
		c.Response().Header()[k] = vs
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(resp.StatusCode)
		return
	}
	_ = c.Blob(resp.StatusCode, resp.Header.Get("Content-Type"), resp.Body)
}

// httpError exposes an echo.HTTPError as a svckit.ResponseError
type httpError struct {
	*echo.HTTPError
}

func (e httpError) StatusCode() int {
	return e.Code
}

func (e httpError) Error() string {
	if msg, ok := e.Message.(string); ok {
		return msg
	}
	if e.Message != nil {
		return fmt.Sprint(e.Message)
	}
	return http.StatusText(e.Code)
}
