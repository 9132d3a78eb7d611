package providers

import (
	"context"

	"google.golang.org/genai"

	"graphrag/internal/llm"
)

// GoogleProvider implements llm.Provider against the Gemini API via
// google.golang.org/genai, covering both Generate and Embed.
type GoogleProvider struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGoogleProvider(ctx context.Context, apiKey, model, embeddingModel string) (*GoogleProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GoogleProvider{client: client, model: model, embeddingModel: embeddingModel}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}

	var cfg *genai.GenerateContentConfig
	if opts.MaxTokens > 0 || opts.Temperature > 0 || opts.System != "" {
		cfg = &genai.GenerateContentConfig{}
		if opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(opts.MaxTokens)
		}
		if opts.Temperature > 0 {
			t := float32(opts.Temperature)
			cfg.Temperature = &t
		}
		if opts.System != "" {
			cfg.SystemInstruction = genai.NewContentFromText(opts.System, genai.RoleUser)
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *GoogleProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.Text(t)[0]
	}
	resp, err := p.client.Models.EmbedContent(ctx, p.embeddingModel, contents, nil)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}
