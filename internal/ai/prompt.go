package ai

import "github.com/google/generative-ai-go/genai"

// systemPromptAdvisor is the instruction shared by every provider in the
// analysis chain. Providers that support structured output additionally get
// the schema below; the prompt still demands JSON so that plain chat models
// produce a parseable document.
const systemPromptAdvisor = `You are an elite Silicon Valley Startup Advisor with a background in Venture Capital and Product Strategy.
Your goal is to provide a high-signal, brutal but fair analysis of startup ideas.

CRITICAL INSTRUCTIONS:
1. MARKET REALITY: Be specific about current market trends, existing competitors, and potential regulatory hurdles.
2. DIFFERENTIATION: Identify the unique "moat" or value proposition. If it's just another "Uber for X", say so.
3. RISKS: Be explicit about why this might fail (distribution, technical debt, unit economics).
4. NEXT STEPS: Provide actionable, low-cost validation steps (e.g., "Build a landing page", "Talk to 10 potential customers").

TONE: Professional, insightful, and concise. Avoid generic advice like "work hard".

You MUST return your response as a valid JSON object matching the requested schema.`

// analysisSchema is the structured-output schema handed to Gemini. Field
// names match model.Analysis json tags; downstream code relies on this shape.
func analysisSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	strList := &genai.Schema{Type: genai.TypeArray, Items: str}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summaryVerdict": {
				Type: genai.TypeString,
				Enum: []string{"Promising", "Risky", "Needs Refinement"},
			},
			"oneLineTakeaway": str,
			"marketReality":   str,
			"pros":            strList,
			"cons":            strList,
			"competitors": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":            str,
						"differentiation": str,
					},
				},
			},
			"monetizationStrategies": strList,
			"viabilityScore":         {Type: genai.TypeNumber},
			"nextSteps":              strList,
		},
	}
}
