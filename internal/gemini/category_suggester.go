package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gitlab.com/dafibh/fortuna/internal/logger"
	"google.golang.org/genai"
)

// SuggestCategoryTimeout bounds the Gemini call for a suggestion.
const SuggestCategoryTimeout = 10 * time.Second

// CategorySuggestion represents a suggested category for an expense description.
type CategorySuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// SuggestCategory uses Gemini to suggest an appropriate category for an
// expense description. The response schema restricts the category to the
// provided list and the confidence to a 0-1 score.
func (c *Client) SuggestCategory(ctx context.Context, description string, availableCategories []string) (*CategorySuggestion, error) {
	descHash := hashText(description)
	logger.Log.Debug().
		Str("description_hash", descHash).
		Int("category_count", len(availableCategories)).
		Msg("SuggestCategory called")

	if c.generator == nil {
		logger.Log.Error().Msg("SuggestCategory: gemini client not initialized")
		return nil, fmt.Errorf("gemini client not initialized")
	}

	if description == "" {
		logger.Log.Warn().Msg("SuggestCategory: empty description provided")
		return nil, fmt.Errorf("description is required")
	}

	if len(availableCategories) == 0 {
		logger.Log.Warn().Msg("SuggestCategory: no categories available")
		return nil, fmt.Errorf("no categories available")
	}

	// Sanitize description to prevent prompt injection attacks.
	sanitizedDescription := SanitizeForPrompt(description, MaxDescriptionLength)

	prompt := buildCategorySuggestionPrompt(sanitizedDescription, availableCategories)

	timeoutCtx, cancel := context.WithTimeout(ctx, SuggestCategoryTimeout)
	defer cancel()

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	temp := float32(0.3)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,      // Lower temperature for more consistent categorization
		MaxOutputTokens: int32(500), // Leave room for the reasoning text
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You are a JSON API. You MUST respond with ONLY valid JSON, no preamble or explanation. Output a single JSON object."},
			},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        availableCategories, // Restrict to allowed values.
					Description: "The most appropriate category from the provided list",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence score between 0 and 1",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "Brief explanation for the categorization",
				},
			},
			Required: []string{"category", "confidence", "reasoning"},
		},
	}

	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName, contents, config)
	if err != nil {
		logger.Log.Error().Err(err).
			Str("description_hash", descHash).
			Msg("SuggestCategory: Gemini API call failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	fullText := resp.Text()
	if fullText == "" {
		logger.Log.Warn().
			Str("description_hash", descHash).
			Msg("SuggestCategory: no text content in Gemini response")
		return nil, fmt.Errorf("no text content in response")
	}

	// Extract JSON from response - Gemini sometimes includes preamble text.
	jsonText := extractJSON(fullText)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var suggestion CategorySuggestion
	if err := json.Unmarshal([]byte(jsonText), &suggestion); err != nil {
		logger.Log.Error().Err(err).
			Str("description_hash", descHash).
			Msg("SuggestCategory: failed to parse JSON response")
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	// Validate that suggested category is in the available list.
	validCategory := false
	for _, cat := range availableCategories {
		if strings.EqualFold(cat, suggestion.Category) {
			suggestion.Category = cat // Use exact case from available list
			validCategory = true
			break
		}
	}

	if !validCategory {
		logger.Log.Warn().
			Str("description_hash", descHash).
			Str("suggested_category", suggestion.Category).
			Msg("SuggestCategory: suggested category not in available list")
		return nil, fmt.Errorf("suggested category '%s' not in available categories", suggestion.Category)
	}

	if suggestion.Confidence < 0.0 || suggestion.Confidence > 1.0 {
		return nil, fmt.Errorf("confidence out of range: %f", suggestion.Confidence)
	}

	// Sanitize reasoning field before returning.
	suggestion.Reasoning = sanitizeReasoning(suggestion.Reasoning)

	logger.Log.Debug().
		Str("description_hash", descHash).
		Str("category", suggestion.Category).
		Float64("confidence", suggestion.Confidence).
		Msg("SuggestCategory: parsed Gemini suggestion")

	return &suggestion, nil
}

// buildCategorySuggestionPrompt creates the prompt for category suggestion.
func buildCategorySuggestionPrompt(description string, categories []string) string {
	categoriesList := strings.Join(categories, "\n- ")

	return fmt.Sprintf(`Categorize this expense: "%s"

Available categories:
- %s

Rules:
- Choose the MOST appropriate category from the list
- "Dining Out" for restaurant/takeout meals, "Groceries" for ingredients and supermarkets
- "Transport" for taxi, uber, grab, bus, train
- Higher confidence (0.8-1.0) for obvious categories, lower (0.5-0.7) for ambiguous ones

Return JSON only:
{"category": "exact category name", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`, description, categoriesList)
}

// sanitizeReasoning sanitizes the reasoning field from the LLM response.
// This prevents potentially malicious content from being persisted or displayed.
func sanitizeReasoning(reasoning string) string {
	reasoning = strings.Join(strings.Fields(reasoning), " ")

	const maxReasoningLength = 500
	if len(reasoning) > maxReasoningLength {
		reasoning = strings.TrimSpace(reasoning[:maxReasoningLength])
	}

	return reasoning
}
