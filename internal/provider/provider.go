// Package provider implements the provider gateway (C1): a single call
// that routes to remote LLM endpoints by (platform, model), with retry,
// backoff, and per-call cost accounting. Grounded on
// internal/perception/client.go's ZAIClient.CompleteWithSystem retry
// loop (exponential backoff, 429/5xx retry, bearer auth) and
// original_source/lib/ai_client.py for the endpoint-kind dispatch and
// cost table.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/logging"
)

// EndpointKind classifies what a (platform, model) pair actually serves.
type EndpointKind string

const (
	EndpointChat       EndpointKind = "chat"
	EndpointCompletion EndpointKind = "completion"
	EndpointEmbedding  EndpointKind = "embedding"
	EndpointAudio      EndpointKind = "audio"
	EndpointImage      EndpointKind = "image"
)

// Descriptor is one immutable row of the provider capability/pricing table.
type Descriptor struct {
	Platform          string
	Model             string
	Kind              EndpointKind
	MaxContextTokens  int
	InputPricePer1K   float64
	OutputPricePer1K  float64
	SupportsStreaming bool
}

// RetriableError wraps a transport or transient-server error (timeouts,
// 429, 5xx) that the gateway's retry loop should retry. Any other error
// returned by a Transport is treated as permanent.
type RetriableError struct {
	Err error
}

func (e *RetriableError) Error() string { return e.Err.Error() }
func (e *RetriableError) Unwrap() error { return e.Err }

// Transport performs the actual network call for one (platform, model)
// pair. Implementations should wrap transient failures in
// *RetriableError; anything else is treated as permanent (auth,
// malformed request/response).
type Transport interface {
	Complete(ctx context.Context, kind EndpointKind, platform, model, prompt string) (text string, tokensIn, tokensOut int, err error)
}

// Request is one call to the gateway.
type Request struct {
	Platform string
	Model    string
	Prompt   string
}

// Result is the outcome of a successful call.
type Result struct {
	Success   bool
	Content   string
	TokensIn  int
	TokensOut int
	Cost      float64
}

var ErrNonTextEndpoint = errors.New("provider: endpoint kind is not valid for directive execution")

// Gateway is the C1 provider abstraction.
type Gateway struct {
	transport   Transport
	descriptors map[string]Descriptor
	attempts    int
	initialDelay time.Duration
	log         *logging.Logger
}

// New constructs a Gateway from a descriptor table and retry settings
// pulled from config.
func New(transport Transport, descriptors []Descriptor, cfg *config.Config, log *logging.Logger) *Gateway {
	table := make(map[string]Descriptor, len(descriptors))
	for _, d := range descriptors {
		table[key(d.Platform, d.Model)] = d
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Gateway{
		transport:    transport,
		descriptors:  table,
		attempts:     attempts,
		initialDelay: cfg.APIRetryDelay(),
		log:          log,
	}
}

func key(platform, model string) string { return platform + "/" + model }

// Descriptor returns the capability row for (platform, model), if known.
func (g *Gateway) Descriptor(platform, model string) (Descriptor, bool) {
	d, ok := g.descriptors[key(platform, model)]
	return d, ok
}

// Call dispatches one request, retrying on transient failures per
// §4.4's backoff policy: up to N attempts, exponential delay doubling
// from the configured initial value, no jitter. Authentication-class
// errors and malformed responses are never retried.
func (g *Gateway) Call(ctx context.Context, req Request) (Result, error) {
	descriptor, ok := g.descriptors[key(req.Platform, req.Model)]
	if ok && isNonTextKind(descriptor.Kind) {
		return Result{}, ErrNonTextEndpoint
	}
	kind := EndpointChat
	if ok {
		kind = descriptor.Kind
	}

	g.log.ProviderRequest(req.Platform, req.Model, len(req.Prompt))

	var lastErr error
	delay := g.initialDelay
	for attempt := 0; attempt < g.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		text, tokensIn, tokensOut, err := g.transport.Complete(ctx, kind, req.Platform, req.Model, req.Prompt)
		if err == nil {
			cost := g.cost(descriptor, ok, tokensIn, tokensOut)
			g.log.ProviderResponse(req.Platform, req.Model, true, tokensOut, cost, "")
			return Result{Success: true, Content: text, TokensIn: tokensIn, TokensOut: tokensOut, Cost: cost}, nil
		}

		lastErr = err
		var retriable *RetriableError
		if !errors.As(err, &retriable) {
			g.log.ProviderResponse(req.Platform, req.Model, false, 0, 0, err.Error())
			return Result{}, err
		}
	}

	g.log.ProviderResponse(req.Platform, req.Model, false, 0, 0, lastErr.Error())
	return Result{}, fmt.Errorf("provider: exhausted %d attempts: %w", g.attempts, lastErr)
}

func (g *Gateway) cost(d Descriptor, known bool, tokensIn, tokensOut int) float64 {
	if !known {
		g.log.Warn("provider: model absent from descriptor table, cost is zero")
		return 0
	}
	return float64(tokensIn)/1000*d.InputPricePer1K + float64(tokensOut)/1000*d.OutputPricePer1K
}

func isNonTextKind(k EndpointKind) bool {
	return k == EndpointEmbedding || k == EndpointAudio || k == EndpointImage
}
