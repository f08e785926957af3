package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// openRouterModels is tried in order within one chain attempt. The list
// leans on free-tier routes so an exhausted primary quota does not take the
// product down.
var openRouterModels = []string{
	"openrouter/auto",
	"google/gemini-2.0-flash-lite-preview-02-05:free",
	"google/gemini-2.0-flash-exp:free",
	"deepseek/deepseek-chat:free",
	"mistralai/mistral-7b-instruct:free",
	"microsoft/phi-3-mini-128k-instruct:free",
	"qwen/qwen-2.5-72b-instruct:free",
}

// modelLoopMargin stops the internal model loop when too little of the
// attempt deadline remains to finish another completion.
const modelLoopMargin = 2 * time.Second

// OpenRouter is the reliability fallback. It speaks the OpenAI-compatible
// chat-completions API and walks its model list until one answers.
type OpenRouter struct {
	key    string
	client *http.Client
}

func NewOpenRouter(apiKey string) *OpenRouter {
	return &OpenRouter{key: apiKey, client: &http.Client{}}
}

func (o *OpenRouter) Name() string              { return "openrouter" }
func (o *OpenRouter) SupportsAttachments() bool { return false }

func (o *OpenRouter) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	var lastErr error
	for _, mdl := range openRouterModels {
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < modelLoopMargin {
			if lastErr == nil {
				lastErr = fmt.Errorf("model loop skipped: attempt deadline nearly exhausted")
			}
			break
		}
		text, err := o.complete(ctx, mdl, req.Idea)
		if err == nil {
			return text, nil
		}
		lastErr = fmt.Errorf("model %s: %w", mdl, err)
	}
	return "", lastErr
}

func (o *OpenRouter) complete(ctx context.Context, mdl, idea string) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: mdl,
		Messages: []chatMessage{
			{Role: "system", Content: systemPromptAdvisor},
			{Role: "user", Content: idea},
		},
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://openrouter.ai/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.key)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", "https://greenli8.com")
	httpReq.Header.Set("X-Title", "Greenli8 AI")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return decodeChatCompletion(resp)
}

// Shared wire types for the OpenAI-compatible providers (OpenRouter, Sarvam).

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decodeChatCompletion(resp *http.Response) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("status %d: malformed response body", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return out.Choices[0].Message.Content, nil
}
