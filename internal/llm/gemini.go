package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/hackgods/appointment-assistant/internal/assistant"
)

const historyTurns = 6

var ErrEmptyResponse = errors.New("llm: empty response")

// generator is the part of genai.Models the client calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GeminiClient extracts booking fields and phrases replies. It never decides
// what the assistant does next.
type GeminiClient struct {
	models  generator
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: api key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(cli.Models, model, timeout), nil
}

func newClient(models generator, model string, timeout time.Duration) *GeminiClient {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{models: models, model: model, timeout: timeout}
}

func (g *GeminiClient) Name() string { return "gemini:" + g.model }

func (g *GeminiClient) Extract(ctx context.Context, req assistant.ExtractRequest) (assistant.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromText(extractPrompt(req), genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(extractInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    extractionSchema,
			Temperature:       genai.Ptr[float32](0),
		},
	)
	if err != nil {
		return assistant.Extraction{}, fmt.Errorf("extract fields: %w", err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return assistant.Extraction{}, ErrEmptyResponse
	}
	return decodeExtraction(text)
}

// Phrase streams the rewritten reply token by token.
func (g *GeminiClient) Phrase(ctx context.Context, req assistant.PhraseRequest, emit func(string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := historyContents(req.History)
	contents = append(contents, genai.NewContentFromText(phrasePrompt(req), genai.RoleUser))

	var out strings.Builder
	stream := g.models.GenerateContentStream(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(phraseInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.3),
	})
	for resp, err := range stream {
		if err != nil {
			return out.String(), fmt.Errorf("phrase reply: %w", err)
		}
		tok := responseText(resp)
		if tok == "" {
			continue
		}
		out.WriteString(tok)
		if emit != nil {
			emit(tok)
		}
	}
	if strings.TrimSpace(out.String()) == "" {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}

func historyContents(history []assistant.Pair) []*genai.Content {
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	contents := make([]*genai.Content, 0, len(history)*2+1)
	for _, p := range history {
		contents = append(contents,
			genai.NewContentFromText(p.Input, genai.RoleUser),
			genai.NewContentFromText(p.Output, genai.RoleModel),
		)
	}
	return contents
}

// responseText joins the text parts of the first candidate, skipping thoughts.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}
