package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

const sarvamModel = "sarvam-m"

// Sarvam is the final, text-only fallback. Attachment requests never reach
// it: the gateway skips attachment-incapable providers when one is present.
type Sarvam struct {
	key    string
	client *http.Client
}

func NewSarvam(apiKey string) *Sarvam {
	return &Sarvam{key: apiKey, client: &http.Client{}}
}

func (s *Sarvam) Name() string              { return "sarvam" }
func (s *Sarvam) SupportsAttachments() bool { return false }

func (s *Sarvam) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: sarvamModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPromptAdvisor},
			{Role: "user", Content: req.Idea},
		},
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.sarvam.ai/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("api-subscription-key", s.key)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return decodeChatCompletion(resp)
}
