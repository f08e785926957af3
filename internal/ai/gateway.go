package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/greenli8/idea-validator/internal/config"
	"github.com/greenli8/idea-validator/internal/model"
)

// minAttemptBudget is the floor below which starting another provider call is
// pointless: it could not finish before the caller's own timeout.
const minAttemptBudget = time.Second

// ErrInvalidResponse marks a provider reply from which no valid analysis
// document could be extracted. It is recorded as that provider's failure
// reason and the chain advances.
var ErrInvalidResponse = errors.New("invalid AI response format")

// ProviderFailure records why one provider attempt did not produce a report.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// ExhaustedError aggregates every per-provider failure from one chain
// execution so logs and callers can tell a misconfiguration apart from a
// provider outage.
type ExhaustedError struct {
	Failures []ProviderFailure
}

func (e *ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "no AI provider credentials configured"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Provider + ": " + f.Reason
	}
	return "all AI providers failed: " + strings.Join(parts, "; ")
}

// Result is a normalized analysis together with the raw JSON document the
// provider produced. Raw is persisted verbatim so fields outside the known
// schema survive storage.
type Result struct {
	Analysis model.Analysis
	Raw      json.RawMessage
	Provider string
}

// Gateway runs the provider fallback chain under a shared wall-clock budget.
// Construct via FromConfig (live providers) or New (tests).
type Gateway struct {
	providers []Provider
	chat      ChatProvider
	budget    time.Duration
}

// New builds a gateway over an explicit provider chain.
func New(providers []Provider, budget time.Duration) *Gateway {
	if budget <= 0 {
		budget = 8500 * time.Millisecond
	}
	return &Gateway{providers: providers, budget: budget}
}

// FromConfig assembles the chain from whichever credentials are present:
// Gemini first (structured output, attachments), then OpenRouter, then
// Sarvam. Gemini also serves follow-up chat when configured.
func FromConfig(cfg config.Config) *Gateway {
	var providers []Provider
	var chat ChatProvider
	if cfg.GeminiKey != "" {
		gem := NewGemini(cfg.GeminiKey)
		providers = append(providers, gem)
		chat = gem
	}
	if cfg.OpenRouterKey != "" {
		providers = append(providers, NewOpenRouter(cfg.OpenRouterKey))
	}
	if cfg.SarvamKey != "" {
		providers = append(providers, NewSarvam(cfg.SarvamKey))
	}
	g := New(providers, cfg.AnalysisBudget)
	g.chat = chat
	return g
}

// Analyze walks the provider chain until one yields a valid analysis.
// Each attempt runs with a deadline derived from the remaining global
// budget, so an early failure leaves more room for later fallbacks, and an
// attempt that cannot finish in time is skipped rather than started.
// preferred, when non-empty and matching a provider name, moves that
// provider to the front of the chain.
func (g *Gateway) Analyze(ctx context.Context, idea string, attachment *model.Attachment, preferred string) (Result, error) {
	start := time.Now()
	req := AnalyzeRequest{Idea: idea, Attachment: attachment}

	chain := g.orderedChain(preferred)
	failures := make([]ProviderFailure, 0, len(chain))
	for _, p := range chain {
		if attachment != nil && !p.SupportsAttachments() {
			failures = append(failures, ProviderFailure{Provider: p.Name(), Reason: "skipped: attachments not supported"})
			continue
		}
		remaining := g.budget - time.Since(start)
		if remaining < minAttemptBudget {
			failures = append(failures, ProviderFailure{Provider: p.Name(), Reason: "skipped: analysis budget exhausted"})
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, remaining)
		text, err := p.Analyze(attemptCtx, req)
		cancel()
		if err != nil {
			log.Printf("ai: provider %s failed: %v", p.Name(), err)
			failures = append(failures, ProviderFailure{Provider: p.Name(), Reason: err.Error()})
			continue
		}

		analysis, raw, err := parseAnalysis(text)
		if err != nil {
			log.Printf("ai: provider %s returned unusable output: %v", p.Name(), err)
			failures = append(failures, ProviderFailure{Provider: p.Name(), Reason: err.Error()})
			continue
		}
		return Result{Analysis: analysis, Raw: raw, Provider: p.Name()}, nil
	}
	return Result{}, &ExhaustedError{Failures: failures}
}

// Chat answers a follow-up question about an existing report. Single
// provider, no fallback chain, same budget discipline as analysis.
func (g *Gateway) Chat(ctx context.Context, message string, cc ChatContext) (string, error) {
	if g.chat == nil {
		return "", errors.New("chat provider not configured")
	}
	chatCtx, cancel := context.WithTimeout(ctx, g.budget)
	defer cancel()
	return g.chat.Chat(chatCtx, message, cc)
}

func (g *Gateway) orderedChain(preferred string) []Provider {
	if preferred == "" {
		return g.providers
	}
	chain := make([]Provider, 0, len(g.providers))
	for _, p := range g.providers {
		if p.Name() == preferred {
			chain = append([]Provider{p}, chain...)
		} else {
			chain = append(chain, p)
		}
	}
	return chain
}

// parseAnalysis normalizes a provider's text output into an analysis
// document. It first tries the whole text as JSON, then falls back to the
// outermost {...} block for models that wrap the document in prose. The
// parsed object is then checked for the fields downstream code relies on;
// a document missing them is rejected here rather than persisted.
func parseAnalysis(text string) (model.Analysis, json.RawMessage, error) {
	raw := extractJSON(text)
	if raw == nil {
		return model.Analysis{}, nil, ErrInvalidResponse
	}
	var a model.Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.Analysis{}, nil, ErrInvalidResponse
	}
	if err := validateAnalysis(a); err != nil {
		return model.Analysis{}, nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return a, raw, nil
}

func extractJSON(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed)
	}
	i := strings.IndexByte(trimmed, '{')
	j := strings.LastIndexByte(trimmed, '}')
	if i < 0 || j <= i {
		return nil
	}
	candidate := trimmed[i : j+1]
	if !json.Valid([]byte(candidate)) {
		return nil
	}
	return json.RawMessage(candidate)
}

func validateAnalysis(a model.Analysis) error {
	switch a.SummaryVerdict {
	case model.VerdictPromising, model.VerdictRisky, model.VerdictNeedsRefinement:
	default:
		return fmt.Errorf("unknown verdict %q", a.SummaryVerdict)
	}
	if strings.TrimSpace(a.OneLineTakeaway) == "" {
		return errors.New("missing oneLineTakeaway")
	}
	if a.ViabilityScore < 0 || a.ViabilityScore > 100 {
		return fmt.Errorf("viability score %v out of range", a.ViabilityScore)
	}
	return nil
}
