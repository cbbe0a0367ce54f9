package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/infraprobe/internal/httpapi/middleware"
)

// DirectResponse is returned to callers that invoke the function directly
// rather than through API Gateway.
type DirectResponse struct {
	StatusCode int `json:"statusCode"`
	Body       any `json:"body"`
}

// LambdaHandler serves API Gateway proxy events through Router and answers
// direct invocations with Assistant.
type LambdaHandler struct {
	Logger    *zap.Logger
	Router    http.Handler
	Assistant Answerer
}

func (h *LambdaHandler) Invoke(ctx context.Context, payload json.RawMessage) (any, error) {
	var probe struct {
		HTTPMethod string `json:"httpMethod"`
	}
	_ = json.Unmarshal(payload, &probe)

	if probe.HTTPMethod != "" {
		var ev events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode proxy event: %w", err)
		}
		return h.ServeProxy(ctx, ev)
	}
	return h.direct(ctx, payload), nil
}

// ServeProxy replays an API Gateway proxy event against the router.
func (h *LambdaHandler) ServeProxy(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := proxyRequest(ctx, ev)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	w := newProxyWriter()
	h.Router.ServeHTTP(w, req)
	return w.response(), nil
}

func (h *LambdaHandler) direct(ctx context.Context, payload json.RawMessage) DirectResponse {
	var p askPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return DirectResponse{StatusCode: http.StatusBadRequest, Body: map[string]string{"error": "invalid JSON body"}}
	}
	q := p.Text()
	if q == "" {
		return DirectResponse{StatusCode: http.StatusBadRequest, Body: map[string]string{"error": "question is required"}}
	}

	id := uuid.NewString()
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		id = lc.AwsRequestID
	}
	ans := h.Assistant.Answer(apimw.WithRequestID(ctx, id), q)
	ans.RequestID = id
	h.Logger.Info("direct_invoke", zap.String("request_id", id), zap.String("data_source", ans.DataSource))
	return DirectResponse{StatusCode: http.StatusOK, Body: ans}
}

func proxyRequest(ctx context.Context, ev events.APIGatewayProxyRequest) (*http.Request, error) {
	q := url.Values{}
	for k, vs := range ev.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range ev.QueryStringParameters {
		if _, ok := q[k]; !ok {
			q.Set(k, v)
		}
	}

	body := []byte(ev.Body)
	if ev.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = b
	}

	path := ev.Path
	if path == "" {
		path = "/"
	}
	u := &url.URL{Path: path, RawQuery: q.Encode()}
	req, err := http.NewRequestWithContext(ctx, ev.HTTPMethod, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range ev.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range ev.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if req.Header.Get(apimw.RequestIDHeader) == "" && ev.RequestContext.RequestID != "" {
		req.Header.Set(apimw.RequestIDHeader, ev.RequestContext.RequestID)
	}
	if ip := ev.RequestContext.Identity.SourceIP; ip != "" {
		req.RemoteAddr = ip + ":0"
	}
	return req, nil
}

// proxyWriter buffers a response so it can be returned as a proxy response.
type proxyWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newProxyWriter() *proxyWriter {
	return &proxyWriter{header: http.Header{}}
}

func (w *proxyWriter) Header() http.Header { return w.header }

func (w *proxyWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *proxyWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *proxyWriter) response() events.APIGatewayProxyResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	single := make(map[string]string, len(w.header))
	for k, vs := range w.header {
		single[k] = strings.Join(vs, ",")
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           single,
		MultiValueHeaders: w.header,
		Body:              w.body.String(),
	}
}
