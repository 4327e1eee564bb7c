package translate

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// openAISystemPrompt instructs the model to behave as a pure text-in,
// text-out translator for short UI strings extracted from binaries.
const openAISystemPrompt = `You are a professional translator for software UI strings.
Translate the user's text from %s to %s.
Preserve format specifiers (%%s, %%d, {0}), leading/trailing whitespace,
separators, and punctuation exactly. Keep brand names unchanged.
Return ONLY the translated text, no quotes, no explanations.`

// OpenAI translates through an OpenAI-compatible chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the engine. baseURL may point at any OpenAI-compatible
// server (empty for api.openai.com); model defaults to gpt-4o-mini.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name implements Engine.
func (o *OpenAI) Name() string { return "openai" }

// Translate implements Engine.
func (o *OpenAI) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	if text == "" {
		return "", nil
	}
	src := srcLang
	if src == "" || src == "auto" {
		src = "the source language"
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(openAISystemPrompt, src, dstLang),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	out := resp.Choices[0].Message.Content
	// Models occasionally wrap short answers in quotes despite the prompt.
	if len(out) >= 2 && strings.HasPrefix(out, `"`) && strings.HasSuffix(out, `"`) && !strings.HasPrefix(text, `"`) {
		out = strings.Trim(out, `"`)
	}
	return out, nil
}
