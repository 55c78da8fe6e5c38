package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/dafibh/fortuna/internal/logger"
	"google.golang.org/genai"
)

// EstimateGoalTimeout bounds the Gemini call for a goal estimate.
const EstimateGoalTimeout = 10 * time.Second

// GoalSnapshot is the numeric picture of a savings goal handed to the
// model. Amounts are pre-rendered strings so the prompt stays stable
// regardless of decimal internals.
type GoalSnapshot struct {
	Name            string
	TargetAmount    decimal.Decimal
	CurrentAmount   decimal.Decimal
	MonthlySavings  decimal.Decimal
	MonthsRemaining int
}

// GoalConfidence is the model's 0-1 estimate that a goal will be reached
// by its deadline, with a short explanation.
type GoalConfidence struct {
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// EstimateGoalConfidence asks Gemini how likely the goal is to be reached
// in time. Callers must treat an error as "no estimate": progress renders
// without a trend label rather than with an invented one.
func (c *Client) EstimateGoalConfidence(ctx context.Context, snapshot GoalSnapshot) (*GoalConfidence, error) {
	if c.generator == nil {
		return nil, fmt.Errorf("gemini client not initialized")
	}
	if snapshot.TargetAmount.IsZero() {
		return nil, fmt.Errorf("goal target is required")
	}

	prompt := buildGoalConfidencePrompt(snapshot)

	timeoutCtx, cancel := context.WithTimeout(ctx, EstimateGoalTimeout)
	defer cancel()

	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(300),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You are a JSON API. You MUST respond with ONLY valid JSON, no preamble or explanation. Output a single JSON object."},
			},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Probability between 0 and 1 that the goal is reached on time",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "Brief explanation for the estimate",
				},
			},
			Required: []string{"confidence", "reasoning"},
		},
	}

	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName, []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}, config)
	if err != nil {
		logger.Log.Error().Err(err).Msg("EstimateGoalConfidence: Gemini API call failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	fullText := resp.Text()
	if fullText == "" {
		return nil, fmt.Errorf("no text content in response")
	}

	jsonText := extractJSON(fullText)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var estimate GoalConfidence
	if err := json.Unmarshal([]byte(jsonText), &estimate); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if estimate.Confidence < 0.0 || estimate.Confidence > 1.0 {
		return nil, fmt.Errorf("confidence out of range: %f", estimate.Confidence)
	}

	estimate.Reasoning = sanitizeReasoning(estimate.Reasoning)

	logger.Log.Debug().
		Float64("confidence", estimate.Confidence).
		Msg("EstimateGoalConfidence: parsed Gemini estimate")

	return &estimate, nil
}

func buildGoalConfidencePrompt(s GoalSnapshot) string {
	name := SanitizeForPrompt(s.Name, MaxCategoryNameLength)

	deadline := "no deadline"
	if s.MonthsRemaining > 0 {
		deadline = fmt.Sprintf("%d months remaining", s.MonthsRemaining)
	}

	return fmt.Sprintf(`Estimate how likely this savings goal is to be reached on time.

Goal: "%s"
Target amount: %s
Saved so far: %s
Average saved per month recently: %s
Deadline: %s

Rules:
- Compare the remaining amount against the recent monthly savings pace and the time left
- A goal with no deadline is judged purely on whether the pace is positive and sustained
- Zero or negative recent savings with a near deadline means low confidence

Return JSON only:
{"confidence": 0.0-1.0, "reasoning": "brief explanation"}`,
		name,
		s.TargetAmount.StringFixed(2),
		s.CurrentAmount.StringFixed(2),
		s.MonthlySavings.StringFixed(2),
		deadline,
	)
}
