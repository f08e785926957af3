package model

import (
	"encoding/json"
	"time"
)

// Verdict values the analysis schema instructs providers to choose from.
const (
	VerdictPromising       = "Promising"
	VerdictRisky           = "Risky"
	VerdictNeedsRefinement = "Needs Refinement"
)

// Competitor is one entry of the competitive-landscape section of an analysis.
type Competitor struct {
	Name            string `json:"name"`
	Differentiation string `json:"differentiation"`
}

// Analysis is the structured document a provider returns for one idea. The
// gateway validates the required fields before the result crosses into the
// orchestrator; the remaining lists may be empty depending on the model.
type Analysis struct {
	SummaryVerdict  string       `json:"summaryVerdict"`
	OneLineTakeaway string       `json:"oneLineTakeaway"`
	MarketReality   string       `json:"marketReality"`
	Pros            []string     `json:"pros"`
	Cons            []string     `json:"cons"`
	Competitors     []Competitor `json:"competitors"`
	Monetization    []string     `json:"monetizationStrategies"`
	ViabilityScore  float64      `json:"viabilityScore"`
	NextSteps       []string     `json:"nextSteps"`
}

// Attachment is an optional multi-modal input forwarded to providers that
// support it. Data is base64 as received on the wire; providers decode it.
type Attachment struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Report is one persisted analysis result. Rows are append-only: they are
// created as the final step of a successful analysis and never updated.
// "Clearing history" deletes rows, never edits them.
type Report struct {
	ID              uint64          `json:"id"`
	UserID          uint64          `json:"userId"`
	OriginalIdea    string          `json:"originalIdea"`
	SummaryVerdict  string          `json:"summaryVerdict"`
	ViabilityScore  float64         `json:"viabilityScore"`
	OneLineTakeaway string          `json:"oneLineTakeaway"`
	MarketReality   string          `json:"marketReality"`
	FullReport      json.RawMessage `json:"fullReport"`
	Provider        string          `json:"provider"`
	CreatedAt       time.Time       `json:"createdAt"`
}
