package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiModel = "gemini-2.0-flash"

// Gemini is the primary provider. It is the only chain member that accepts
// attachments and the only backend used for follow-up chat.
type Gemini struct {
	key string
}

func NewGemini(apiKey string) *Gemini { return &Gemini{key: apiKey} }

func (g *Gemini) Name() string              { return "gemini" }
func (g *Gemini) SupportsAttachments() bool { return true }

// Analyze sends the idea (and optional attachment) to Gemini with the
// structured-output schema attached and returns the model's text output.
func (g *Gemini) Analyze(ctx context.Context, req AnalyzeRequest) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.key))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	m := client.GenerativeModel(geminiModel)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPromptAdvisor)}}
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = analysisSchema()
	m.SetTemperature(0.7)

	var parts []genai.Part
	if req.Attachment != nil {
		data, err := base64.StdEncoding.DecodeString(req.Attachment.Data)
		if err != nil {
			return "", fmt.Errorf("decode attachment: %w", err)
		}
		parts = append(parts, genai.Blob{MIMEType: req.Attachment.MimeType, Data: data})
	}
	parts = append(parts, genai.Text("Analyze this startup idea: "+req.Idea))

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

// Chat runs a follow-up turn with the prior report seeded into the history.
func (g *Gemini) Chat(ctx context.Context, message string, cc ChatContext) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.key))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	cs := client.GenerativeModel(geminiModel).StartChat()
	cs.History = []*genai.Content{
		{
			Role: "user",
			Parts: []genai.Part{genai.Text(fmt.Sprintf(
				"You previously analyzed this idea: %q. Here is the report you generated: %s. Keep this context in mind.",
				cc.OriginalIdea, string(cc.Report)))},
		},
		{
			Role:  "model",
			Parts: []genai.Part{genai.Text("Understood. I have the context of the idea and the previous analysis. How can I help you further?")},
		},
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

// textFromResponse concatenates the text parts of the first candidate.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text parts in response")
	}
	return b.String(), nil
}
