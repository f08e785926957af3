// Package ai implements the analysis gateway: an ordered chain of LLM
// providers tried under a shared wall-clock budget until one returns a
// usable structured report.
package ai

import (
	"context"
	"encoding/json"

	"github.com/greenli8/idea-validator/internal/model"
)

// AnalyzeRequest carries one idea through the provider chain. Attachment is
// optional and only forwarded to providers that support multi-modal input.
type AnalyzeRequest struct {
	Idea       string
	Attachment *model.Attachment
}

// Provider is one analysis-capable LLM backend. Analyze returns the model's
// raw text output; extracting and validating the embedded JSON document is
// the gateway's job, so every provider shares one normalization path.
// Implementations must honor ctx cancellation: when the per-attempt deadline
// expires the in-flight call is aborted, not merely ignored.
type Provider interface {
	Name() string
	SupportsAttachments() bool
	Analyze(ctx context.Context, req AnalyzeRequest) (string, error)
}

// ChatContext seeds a follow-up conversation with the idea and the report
// that was previously generated for it.
type ChatContext struct {
	OriginalIdea string          `json:"originalIdea"`
	Report       json.RawMessage `json:"report"`
}

// ChatProvider supports multi-turn follow-up on an existing report. Chat is
// single-provider: there is no fallback chain for conversations.
type ChatProvider interface {
	Chat(ctx context.Context, message string, cc ChatContext) (string, error)
}
