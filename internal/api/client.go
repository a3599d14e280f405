// Package api is the REST client for the chat and notification backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chat-sync/internal/apierr"
	"chat-sync/internal/auth"
	"chat-sync/internal/observability"
)

// Client calls the backend REST API with a bearer token.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenSource
}

// NewClient builds a Client. baseURL is the API root, e.g. http://localhost:8000/api/v1/.
// The transport of httpClient is wrapped so every request carries the caller's trace context.
func NewClient(baseURL string, tokens auth.TokenSource, httpClient *http.Client) *Client {
	traced := &http.Client{Timeout: 30 * time.Second}
	if httpClient != nil {
		*traced = *httpClient
	}
	base := traced.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	traced.Transport = otelhttp.NewTransport(base)
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{baseURL: baseURL, http: traced, tokens: tokens}
}

type request struct {
	op          string
	method      string
	path        string
	body        []byte
	contentType string
}

func jsonRequest(op, method, path string, payload any) (request, error) {
	req := request{op: op, method: method, path: path}
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return req, apierr.Wrap(apierr.KindValidation, op, err)
	}
	req.body = body
	req.contentType = "application/json"
	return req, nil
}

// do performs req and decodes a successful body into out. A 401 triggers one token refresh
// and one retry when the token source supports it.
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, span := otel.Tracer("chat-sync/api").Start(ctx, "rest."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.method),
			attribute.String("http.route", req.path),
		))
	defer span.End()

	start := time.Now()
	err := c.doOnce(ctx, req, out, true)
	outcome := "ok"
	if err != nil {
		outcome = string(apierr.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	observability.ObserveREST(req.op, outcome, time.Since(start))
	return err
}

func (c *Client) doOnce(ctx context.Context, req request, out any, mayRefresh bool) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return apierr.Wrap(apierr.KindAuthentication, req.op, err)
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return apierr.Wrap(apierr.KindValidation, req.op, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return apierr.Wrap(apierr.KindNetwork, req.op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.Wrap(apierr.KindNetwork, req.op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && mayRefresh {
		if refresher, ok := c.tokens.(auth.Refresher); ok {
			if _, rerr := refresher.Refresh(ctx); rerr != nil {
				return &apierr.Error{Kind: apierr.KindAuthentication, Op: req.op, Status: resp.StatusCode, Message: rerr.Error(), Err: rerr}
			}
			return c.doOnce(ctx, req, out, false)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.FromResponse(req.op, resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return apierr.Wrap(apierr.KindServer, req.op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// page accepts both a bare JSON array and a paginated {"results": [...]} envelope.
type page[T any] struct {
	Items []T
}

func (p *page[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &p.Items)
	}
	var env struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	if env.Results == nil {
		return errors.New("response is neither a list nor a paginated envelope")
	}
	p.Items = env.Results
	return nil
}
