package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/greenli8/idea-validator/internal/model"
)

const goodDoc = `{
	"summaryVerdict": "Promising",
	"oneLineTakeaway": "Narrow wedge into a real pain point.",
	"marketReality": "Crowded but fragmented.",
	"pros": ["clear buyer"],
	"cons": ["thin moat"],
	"competitors": [{"name": "Acme", "differentiation": "broader but slower"}],
	"monetizationStrategies": ["monthly subscription"],
	"viabilityScore": 72,
	"nextSteps": ["talk to ten users"]
}`

type fakeProvider struct {
	name        string
	attachments bool
	text        string
	err         error
	calls       int
	sawDeadline time.Duration
}

func (f *fakeProvider) Name() string              { return f.name }
func (f *fakeProvider) SupportsAttachments() bool { return f.attachments }

func (f *fakeProvider) Analyze(ctx context.Context, _ AnalyzeRequest) (string, error) {
	f.calls++
	if dl, ok := ctx.Deadline(); ok {
		f.sawDeadline = time.Until(dl)
	}
	return f.text, f.err
}

func TestAnalyzeFallsBackInOrder(t *testing.T) {
	a := &fakeProvider{name: "gemini", attachments: true, err: errors.New("quota exceeded")}
	b := &fakeProvider{name: "openrouter", err: errors.New("upstream 500")}
	c := &fakeProvider{name: "sarvam", text: goodDoc}

	g := New([]Provider{a, b, c}, 8500*time.Millisecond)
	res, err := g.Analyze(context.Background(), "an idea", nil, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Provider != "sarvam" {
		t.Fatalf("provider = %q, want sarvam", res.Provider)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Fatalf("calls = %d/%d/%d, want 1/1/1", a.calls, b.calls, c.calls)
	}
	if res.Analysis.SummaryVerdict != model.VerdictPromising {
		t.Fatalf("verdict = %q", res.Analysis.SummaryVerdict)
	}
	if string(res.Raw) == "" {
		t.Fatal("raw payload not carried through")
	}
}

func TestAnalyzeFirstSuccessStopsChain(t *testing.T) {
	a := &fakeProvider{name: "gemini", attachments: true, text: goodDoc}
	b := &fakeProvider{name: "openrouter"}

	g := New([]Provider{a, b}, 8500*time.Millisecond)
	res, err := g.Analyze(context.Background(), "an idea", nil, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Provider != "gemini" {
		t.Fatalf("provider = %q, want gemini", res.Provider)
	}
	if b.calls != 0 {
		t.Fatalf("second provider called %d times, want 0", b.calls)
	}
}

func TestAnalyzeAllFailAggregatesReasons(t *testing.T) {
	a := &fakeProvider{name: "gemini", err: errors.New("quota exceeded")}
	b := &fakeProvider{name: "openrouter", err: errors.New("upstream 500")}
	c := &fakeProvider{name: "sarvam", text: "sorry, I cannot help with that"}

	g := New([]Provider{a, b, c}, 8500*time.Millisecond)
	_, err := g.Analyze(context.Background(), "an idea", nil, "")

	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("err = %T %v, want *ExhaustedError", err, err)
	}
	if len(ex.Failures) != 3 {
		t.Fatalf("failures = %d, want 3", len(ex.Failures))
	}
	if ex.Failures[0].Provider != "gemini" || ex.Failures[1].Provider != "openrouter" || ex.Failures[2].Provider != "sarvam" {
		t.Fatalf("failure order wrong: %+v", ex.Failures)
	}
	for _, want := range []string{"quota exceeded", "upstream 500", "invalid AI response"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestAnalyzeSkipsAttachmentIncapableProviders(t *testing.T) {
	a := &fakeProvider{name: "sarvam", attachments: false, text: goodDoc}
	b := &fakeProvider{name: "gemini", attachments: true, text: goodDoc}

	g := New([]Provider{a, b}, 8500*time.Millisecond)
	att := &model.Attachment{MimeType: "image/png", Data: "aGk="}
	res, err := g.Analyze(context.Background(), "an idea", att, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Provider != "gemini" {
		t.Fatalf("provider = %q, want gemini", res.Provider)
	}
	if a.calls != 0 {
		t.Fatal("attachment-incapable provider should not be called")
	}
}

func TestAnalyzePreferredProviderGoesFirst(t *testing.T) {
	a := &fakeProvider{name: "gemini", text: goodDoc}
	b := &fakeProvider{name: "sarvam", text: goodDoc}

	g := New([]Provider{a, b}, 8500*time.Millisecond)
	res, err := g.Analyze(context.Background(), "an idea", nil, "sarvam")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Provider != "sarvam" {
		t.Fatalf("provider = %q, want sarvam", res.Provider)
	}
	if a.calls != 0 {
		t.Fatal("non-preferred provider called before preferred succeeded")
	}
}

func TestAnalyzeBudgetExhaustedSkipsRemaining(t *testing.T) {
	// A budget below the attempt floor means every provider is skipped
	// without being invoked.
	a := &fakeProvider{name: "gemini", text: goodDoc}

	g := New([]Provider{a}, time.Millisecond)
	_, err := g.Analyze(context.Background(), "an idea", nil, "")

	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("err = %v, want *ExhaustedError", err)
	}
	if a.calls != 0 {
		t.Fatal("provider called despite exhausted budget")
	}
	if !strings.Contains(ex.Failures[0].Reason, "budget exhausted") {
		t.Fatalf("reason = %q", ex.Failures[0].Reason)
	}
}

func TestAnalyzeAttemptDeadlineWithinBudget(t *testing.T) {
	a := &fakeProvider{name: "gemini", text: goodDoc}

	g := New([]Provider{a}, 3*time.Second)
	if _, err := g.Analyze(context.Background(), "an idea", nil, ""); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if a.sawDeadline <= 0 || a.sawDeadline > 3*time.Second {
		t.Fatalf("attempt deadline %v not within budget", a.sawDeadline)
	}
}

func TestAnalyzeNoProvidersConfigured(t *testing.T) {
	g := New(nil, 8500*time.Millisecond)
	_, err := g.Analyze(context.Background(), "an idea", nil, "")
	if err == nil || !strings.Contains(err.Error(), "no AI provider credentials") {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractJSONFromProse(t *testing.T) {
	wrapped := "Sure! Here is the analysis you asked for:\n```json\n" + goodDoc + "\n```\nLet me know if you need anything else."
	raw := extractJSON(wrapped)
	if raw == nil {
		t.Fatal("no JSON extracted from prose-wrapped reply")
	}
	a, _, err := parseAnalysis(wrapped)
	if err != nil {
		t.Fatalf("parseAnalysis: %v", err)
	}
	if a.ViabilityScore != 72 {
		t.Fatalf("score = %v, want 72", a.ViabilityScore)
	}
}

func TestParseAnalysisRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"prose only", "I think this idea is great."},
		{"unknown verdict", `{"summaryVerdict":"Amazing","oneLineTakeaway":"x","viabilityScore":50}`},
		{"empty takeaway", `{"summaryVerdict":"Risky","oneLineTakeaway":"  ","viabilityScore":50}`},
		{"score out of range", `{"summaryVerdict":"Risky","oneLineTakeaway":"x","viabilityScore":120}`},
		{"truncated json", `{"summaryVerdict":"Risky","oneLineTakeaway":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := parseAnalysis(tc.text); !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("err = %v, want ErrInvalidResponse", err)
			}
		})
	}
}
