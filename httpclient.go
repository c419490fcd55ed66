package svckit

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http/httpguts"
)

const (
	// DefaultHTTPTimeout bounds every outbound request, including reading the body
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultContentType is sent when a request sets no Content-Type
	DefaultContentType = "application/json;charset=utf8"

	// ServiceCallHeader carries the calling service's name. It is sent
	// verbatim, not in canonical form.
	ServiceCallHeader = "service_call"
)

// HTTPClientConfig configures outbound HTTP clients
type HTTPClientConfig struct {
	Service   string            `validate:"required"` // Value of the service_call header (required)
	Timeout   time.Duration     `validate:"gte=0"`    // Request timeout (default: 30s)
	Header    http.Header       // Extra headers added to every request
	Transport http.RoundTripper // Base transport (default: http.DefaultTransport)
	Tracer    trace.Tracer      // Starts a client span per request when set
}

// NewHTTPClient builds an outbound client that stamps the service headers
// on every request
func NewHTTPClient(cfg HTTPClientConfig) (*http.Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if err := validateStruct(cfg, "NewHTTPClient"); err != nil {
		return nil, err
	}

	if !httpguts.ValidHeaderFieldValue(cfg.Service) {
		return nil, &Error{Code: CodeInvalidConfig, Message: fmt.Sprintf("invalid %s header value %q", ServiceCallHeader, cfg.Service), Op: "NewHTTPClient"}
	}
	for k, vs := range cfg.Header {
		if !httpguts.ValidHeaderFieldName(k) {
			return nil, &Error{Code: CodeInvalidConfig, Message: fmt.Sprintf("invalid header name %q", k), Op: "NewHTTPClient"}
		}
		for _, v := range vs {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, &Error{Code: CodeInvalidConfig, Message: fmt.Sprintf("invalid value for header %q", k), Op: "NewHTTPClient"}
			}
		}
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &serviceTransport{
			base:    base,
			service: cfg.Service,
			header:  cfg.Header.Clone(),
			tracer:  cfg.Tracer,
		},
	}, nil
}

// MustHTTPClient returns a default client for service. It is meant to be
// called with constants; an invalid name is a programming error and panics.
func MustHTTPClient(service string) *http.Client {
	client, err := NewHTTPClient(HTTPClientConfig{Service: service})
	if err != nil {
		panic(err)
	}
	return client
}

type serviceTransport struct {
	base    http.RoundTripper
	service string
	header  http.Header
	tracer  trace.Tracer
}

func (t *serviceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())

	for k, vs := range t.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", DefaultContentType)
	}
	req.Header[ServiceCallHeader] = []string{t.service}

	if t.tracer == nil {
		return t.base.RoundTrip(req)
	}

	ctx, span := t.tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.Redacted()),
			attribute.String("service.caller", t.service),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}
