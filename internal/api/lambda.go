package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

// LambdaHandler adapts an http.Handler to Lambda function URL events.
// Every event is routed to path, so one function serves one workflow.
type LambdaHandler struct {
	handler http.Handler
	path    string
}

// NewLambdaHandler creates an adapter dispatching every event to path on handler.
func NewLambdaHandler(handler http.Handler, path string) *LambdaHandler {
	return &LambdaHandler{handler: handler, path: path}
}

// Invoke satisfies the signature expected by lambda.Start.
func (l *LambdaHandler) Invoke(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	req, err := l.newRequest(ctx, event)
	if err != nil {
		return events.LambdaFunctionURLResponse{}, err
	}

	rw := newResponseWriter()
	l.handler.ServeHTTP(rw, req)

	headers := make(map[string]string, len(rw.header))
	for k := range rw.header {
		headers[k] = rw.header.Get(k)
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: rw.status,
		Headers:    headers,
		Body:       rw.body.String(),
	}, nil
}

func (l *LambdaHandler) newRequest(ctx context.Context, event events.LambdaFunctionURLRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			// An empty body reaches the handler, which answers with its own 400.
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to decode base64 request body")
			decoded = nil
		}
		body = decoded
	}

	method := event.RequestContext.HTTP.Method
	if method == "" {
		method = http.MethodPost
	}

	u := &url.URL{Path: l.path, RawQuery: event.RawQueryString}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	if len(event.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}

	req.Host = event.RequestContext.DomainName
	req.RemoteAddr = event.RequestContext.HTTP.SourceIP
	req.RequestURI = u.RequestURI()

	return req, nil
}

type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
	wrote  bool
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: make(http.Header), status: http.StatusOK}
}

func (w *responseWriter) Header() http.Header { return w.header }

func (w *responseWriter) WriteHeader(status int) {
	if w.wrote {
		return
	}
	w.status = status
	w.wrote = true
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.body.Write(b)
}
