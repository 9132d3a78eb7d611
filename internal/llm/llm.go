// Package llm implements LLMGateway (spec §4.8): a narrow generate/embed
// capability interface backed by a primary provider with a configured
// fallback, and the sentinel-string failure detection the system this was
// distilled from used to decide when a "successful" HTTP call actually
// carries a provider-side failure (src/llm/llm_provider.py).
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"graphrag/internal/apperr"
)

// GenerateOptions carries the per-call knobs a Provider needs; zero values
// mean "use the provider's configured default".
type GenerateOptions struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature float64
}

// Provider is the capability surface a concrete LLM backend implements.
// Extraction (spec §4.3) only ever needs Generate and Embed — never raw
// chat history, tool calls, or streaming.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Gateway is the LLMGateway of spec §4.8: it calls the primary provider and,
// on error or a detected in-band failure, falls back to the secondary
// provider if one is configured. A fallback is optional — a nil fallback
// degrades to the primary alone.
type Gateway struct {
	Primary  Provider
	Fallback Provider
	Log      *logrus.Logger
}

func NewGateway(primary, fallback Provider, log *logrus.Logger) *Gateway {
	return &Gateway{Primary: primary, Fallback: fallback, Log: log}
}

// Generate calls the primary provider, falling back to the secondary
// provider when the primary call errors or returns an in-band failure
// sentinel. It never silently swallows a total failure: with no fallback
// configured, or when the fallback also fails, it returns an
// apperr.UpstreamUnavailable error.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if g.Primary != nil {
		out, err := g.Primary.Generate(ctx, prompt, opts)
		if err == nil && !IsFailureSentinel(out) {
			return out, nil
		}
		g.logFailure(g.Primary.Name(), err, out)
	}

	if g.Fallback != nil {
		out, err := g.Fallback.Generate(ctx, prompt, opts)
		if err == nil && !IsFailureSentinel(out) {
			return out, nil
		}
		g.logFailure(g.Fallback.Name(), err, out)
		if err != nil {
			return "", apperr.Wrap(apperr.UpstreamUnavailable, "llm generate failed on primary and fallback", err)
		}
		return "", apperr.New(apperr.UpstreamUnavailable, "llm generate returned a failure sentinel on primary and fallback: "+out)
	}

	return "", apperr.New(apperr.UpstreamUnavailable, "llm generate failed and no fallback provider is configured")
}

// Embed calls the primary provider's embedding endpoint, falling back on
// error since embedding responses carry no text body to sentinel-scan.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if g.Primary != nil {
		vecs, err := g.Primary.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		g.logFailure(g.Primary.Name(), err, "")
	}
	if g.Fallback != nil {
		vecs, err := g.Fallback.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		g.logFailure(g.Fallback.Name(), err, "")
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "llm embed failed on primary and fallback", err)
	}
	return nil, apperr.New(apperr.UpstreamUnavailable, "llm embed failed and no fallback provider is configured")
}

func (g *Gateway) logFailure(provider string, err error, sentinel string) {
	if g.Log == nil {
		return
	}
	if err != nil {
		g.Log.WithError(err).WithField("provider", provider).Warn("llm call failed")
		return
	}
	g.Log.WithField("provider", provider).WithField("response_prefix", truncate(sentinel, 80)).Warn("llm call returned a failure sentinel")
}

// IsFailureSentinel reports whether text carries one of the in-band failure
// markers the system this was distilled from checked for even on HTTP 200
// responses, because some self-hosted OpenAI-compatible endpoints encode
// errors as regular completion text rather than as an HTTP error status.
func IsFailureSentinel(text string) bool {
	if strings.HasPrefix(text, "Error:") || strings.HasPrefix(text, "API Response:") {
		return true
	}
	return strings.Contains(strings.ToLower(text), "rate-limited")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ErrUnsupportedCapability is returned by providers that implement Provider
// but do not offer one of its two operations (Anthropic has no embeddings
// endpoint, for instance).
var ErrUnsupportedCapability = errors.New("llm: capability not supported by this provider")
