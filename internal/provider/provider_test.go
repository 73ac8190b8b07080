package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/logging"
)

type scriptedTransport struct {
	calls   int
	results []struct {
		text      string
		in, out   int
		err       error
	}
}

func (s *scriptedTransport) Complete(_ context.Context, _ EndpointKind, _, _, _ string) (string, int, int, error) {
	r := s.results[s.calls]
	s.calls++
	return r.text, r.in, r.out, r.err
}

func testConfig() *config.Config {
	c := config.DefaultConfig()
	c.RetryAttempts = 3
	c.APIRetryDelaySeconds = 0.001
	return c
}

func TestCall_SuccessComputesCost(t *testing.T) {
	transport := &scriptedTransport{results: []struct {
		text    string
		in, out int
		err     error
	}{{text: "hello", in: 100, out: 50}}}

	gw := New(transport, DefaultDescriptors(), testConfig(), logging.NewNop())
	result, err := gw.Call(context.Background(), Request{Platform: "claude", Model: "claude-3-sonnet", Prompt: "hi"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.InDelta(t, 0.00105, result.Cost, 1e-9)
}

func TestCall_RetriesOnTransientThenSucceeds(t *testing.T) {
	rateLimited := &RetriableError{Err: errors.New("429")}
	transport := &scriptedTransport{results: []struct {
		text    string
		in, out int
		err     error
	}{
		{err: rateLimited},
		{err: rateLimited},
		{text: "ok", in: 10, out: 5},
	}}

	gw := New(transport, DefaultDescriptors(), testConfig(), logging.NewNop())
	result, err := gw.Call(context.Background(), Request{Platform: "claude", Model: "claude-3-sonnet", Prompt: "hi"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 3, transport.calls)
}

func TestCall_NonRetriableFailsImmediately(t *testing.T) {
	transport := &scriptedTransport{results: []struct {
		text    string
		in, out int
		err     error
	}{{err: errors.New("401 unauthorized")}}}

	gw := New(transport, DefaultDescriptors(), testConfig(), logging.NewNop())
	_, err := gw.Call(context.Background(), Request{Platform: "claude", Model: "claude-3-sonnet", Prompt: "hi"})
	require.Error(t, err)
	require.Equal(t, 1, transport.calls)
}

func TestCall_ExhaustsAttemptsSurfacesLastError(t *testing.T) {
	rateLimited := &RetriableError{Err: errors.New("429")}
	transport := &scriptedTransport{results: []struct {
		text    string
		in, out int
		err     error
	}{{err: rateLimited}, {err: rateLimited}, {err: rateLimited}}}

	gw := New(transport, DefaultDescriptors(), testConfig(), logging.NewNop())
	_, err := gw.Call(context.Background(), Request{Platform: "claude", Model: "claude-3-sonnet", Prompt: "hi"})
	require.Error(t, err)
	require.Equal(t, 3, transport.calls)
}

func TestCall_UnknownModelCostIsZero(t *testing.T) {
	transport := &scriptedTransport{results: []struct {
		text    string
		in, out int
		err     error
	}{{text: "ok", in: 10, out: 10}}}

	gw := New(transport, nil, testConfig(), logging.NewNop())
	result, err := gw.Call(context.Background(), Request{Platform: "unknown", Model: "mystery", Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, 0.0, result.Cost)
}

func TestCall_NonTextEndpointFailsFast(t *testing.T) {
	descriptors := []Descriptor{{Platform: "openai", Model: "embed-1", Kind: EndpointEmbedding}}
	gw := New(&scriptedTransport{}, descriptors, testConfig(), logging.NewNop())
	_, err := gw.Call(context.Background(), Request{Platform: "openai", Model: "embed-1", Prompt: "hi"})
	require.ErrorIs(t, err, ErrNonTextEndpoint)
}

func TestCall_RespectsContextCancellation(t *testing.T) {
	rateLimited := &RetriableError{Err: errors.New("429")}
	transport := &scriptedTransport{results: []struct {
		text    string
		in, out int
		err     error
	}{{err: rateLimited}, {text: "ok", in: 1, out: 1}}}

	cfg := testConfig()
	cfg.APIRetryDelaySeconds = 10
	gw := New(transport, DefaultDescriptors(), cfg, logging.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := gw.Call(ctx, Request{Platform: "claude", Model: "claude-3-sonnet", Prompt: "hi"})
	require.Error(t, err)
}
