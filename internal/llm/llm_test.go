package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name     string
	text     string
	err      error
	vectors  [][]float32
	embedErr error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return f.text, f.err
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f.vectors, f.embedErr
}

func TestIsFailureSentinel(t *testing.T) {
	cases := map[string]bool{
		"Error: timeout":               true,
		"API Response: 503":            true,
		"we are rate-limited right now": true,
		"this is a fine answer":        false,
		"":                             false,
	}
	for text, want := range cases {
		assert.Equal(t, want, IsFailureSentinel(text), text)
	}
}

func TestGateway_Generate_UsesPrimaryWhenHealthy(t *testing.T) {
	g := NewGateway(&fakeProvider{name: "primary", text: "hello"}, &fakeProvider{name: "fallback", text: "should not be used"}, nil)
	out, err := g.Generate(context.Background(), "prompt", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestGateway_Generate_FallsBackOnError(t *testing.T) {
	g := NewGateway(&fakeProvider{name: "primary", err: errors.New("boom")}, &fakeProvider{name: "fallback", text: "rescued"}, nil)
	out, err := g.Generate(context.Background(), "prompt", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "rescued", out)
}

func TestGateway_Generate_FallsBackOnSentinel(t *testing.T) {
	g := NewGateway(&fakeProvider{name: "primary", text: "Error: rate-limited"}, &fakeProvider{name: "fallback", text: "rescued"}, nil)
	out, err := g.Generate(context.Background(), "prompt", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "rescued", out)
}

func TestGateway_Generate_FailsWhenNoFallbackConfigured(t *testing.T) {
	g := NewGateway(&fakeProvider{name: "primary", err: errors.New("boom")}, nil, nil)
	_, err := g.Generate(context.Background(), "prompt", GenerateOptions{})
	assert.Error(t, err)
}

func TestGateway_Generate_FailsWhenBothFail(t *testing.T) {
	g := NewGateway(&fakeProvider{name: "primary", err: errors.New("boom")}, &fakeProvider{name: "fallback", err: errors.New("also boom")}, nil)
	_, err := g.Generate(context.Background(), "prompt", GenerateOptions{})
	assert.Error(t, err)
}

func TestGateway_Embed_FallsBackOnError(t *testing.T) {
	g := NewGateway(
		&fakeProvider{name: "primary", embedErr: errors.New("boom")},
		&fakeProvider{name: "fallback", vectors: [][]float32{{1, 2, 3}}},
		nil,
	)
	vecs, err := g.Embed(context.Background(), []string{"text"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}}, vecs)
}
