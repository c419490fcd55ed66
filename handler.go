package svckit

import (
	"net/http"
)

// HandlerFunc is an http.HandlerFunc that may fail
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts fn to http.Handler. A returned error is rendered with
// ResponseFor unless fn already started writing the response.
func Handle(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		if err := fn(tw, r); err != nil && !tw.wrote {
			ResponseFor(err).WriteTo(w)
		}
	})
}

// WriteError renders err to w
func WriteError(w http.ResponseWriter, err error) {
	ResponseFor(err).WriteTo(w)
}

// WriteJSON renders data as a success envelope
func WriteJSON(w http.ResponseWriter, status int, data any) {
	JSONResponse(status, data).WriteTo(w)
}

type trackingWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *trackingWriter) WriteHeader(code int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackingWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *trackingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
