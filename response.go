package svckit

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ResponseError is an error that knows which HTTP status it maps to.
// cmd/errorgen implements it for error enums.
type ResponseError interface {
	error
	StatusCode() int
}

// Envelope is the uniform body of every JSON response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Response is a fully rendered HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// WriteTo writes the response to w
func (r *Response) WriteTo(w http.ResponseWriter) {
	h := w.Header()
	for k, v := range r.Header {
		h[k] = v
	}
	w.WriteHeader(r.StatusCode)
	_, _ = w.Write(r.Body)
}

// ErrorResponse renders e as a failure envelope with e's status code.
// Status codes outside 100..599 are replaced by 500.
func ErrorResponse(e ResponseError) *Response {
	status := e.StatusCode()
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}

	msg := e.Error()
	if msg == "" {
		msg = http.StatusText(status)
	}
	return render(status, Envelope{Success: false, Message: msg})
}

// JSONResponse renders data as a success envelope
func JSONResponse(status int, data any) *Response {
	return render(status, Envelope{Success: true, Message: http.StatusText(status), Data: data})
}

// ResponseFor renders err. Errors that carry a status (anywhere in their
// chain) render their own message; anything else becomes a generic 500 so
// internal details are not exposed.
func ResponseFor(err error) *Response {
	var re ResponseError
	if errors.As(err, &re) {
		return ErrorResponse(re)
	}
	return render(http.StatusInternalServerError, Envelope{
		Success: false,
		Message: http.StatusText(http.StatusInternalServerError),
	})
}

func render(status int, env Envelope) *Response {
	body, err := json.Marshal(env)
	if err != nil {
		// Data could not be encoded; keep the envelope shape
		status = http.StatusInternalServerError
		body, _ = json.Marshal(Envelope{Message: http.StatusText(status)})
	}

	return &Response{
		StatusCode: status,
		Header: http.Header{
			"Content-Type":                []string{"application/json"},
			"Access-Control-Allow-Origin": []string{"*"},
		},
		Body: body,
	}
}
