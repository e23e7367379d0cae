package assistant

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates text with the Google Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini generator. An empty apiKey returns ErrUnavailable.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, system string, history []Message) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, toContents(history), generateConfig(system))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Stream implements Generator.
func (g *Gemini) Stream(ctx context.Context, system string, history []Message, onChunk func(string) error) error {
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, toContents(history), generateConfig(system)) {
		if err != nil {
			return err
		}
		if errChunk := onChunk(resp.Text()); errChunk != nil {
			return errChunk
		}
	}
	return nil
}

func generateConfig(system string) *genai.GenerateContentConfig {
	if strings.TrimSpace(system) == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
}

func toContents(history []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		var role genai.Role = genai.RoleUser
		if msg.Role == RoleModel {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(msg.Text, role))
	}
	return out
}
