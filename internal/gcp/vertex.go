package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/documentintelligence/internal/llm"
)

// VertexClient is a Gemini completion service. A model handle is created per
// request so temperature and response format can vary between callers.
type VertexClient struct {
	baseClient   *genai.Client
	defaultModel string
}

// NewVertexClient creates a client for the given project and region.
func NewVertexClient(ctx context.Context, projectID, region, defaultModel string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty: %w", llm.ErrMissingCredentials)
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexClient{baseClient: baseClient, defaultModel: defaultModel}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// Complete sends the conversation and returns the model's text.
func (c *VertexClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	name := req.Model
	if name == "" {
		name = c.defaultModel
	}
	system, history, last, err := splitConversation(req.Messages)
	if err != nil {
		return "", err
	}

	model := c.baseClient.GenerativeModel(name)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	model.GenerationConfig = generationConfig(req)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
	}

	session := model.StartChat()
	session.History = history
	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("vertex %s: %w", name, err)
	}
	text := responseText(resp)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func generationConfig(req llm.Request) genai.GenerationConfig {
	cfg := genai.GenerationConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = genai.Ptr(int32(req.MaxOutputTokens))
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// splitConversation separates system text, prior turns and the final user
// message. Gemini calls the assistant role "model".
func splitConversation(msgs []llm.Message) (system string, history []*genai.Content, last string, err error) {
	var systemParts []string
	var turns []llm.Message
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != llm.RoleUser {
		return "", nil, "", errors.New("conversation must end with a user message")
	}
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(systemParts, "\n\n"), history, turns[len(turns)-1].Content, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
