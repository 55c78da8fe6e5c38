package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitlab.com/dafibh/fortuna/internal/logger"
	"google.golang.org/genai"
)

// GenerateInsightTimeout bounds the Gemini call for a reflection insight.
const GenerateInsightTimeout = 15 * time.Second

// maxInsightLength caps the stored insight text.
const maxInsightLength = 600

// ReflectionDigest is the month summary the insight is generated from.
// The aggregate lines are pre-rendered by the caller ("Dining Out:
// $412.30", "stressed: 6 expenses") so the prompt carries no raw
// records.
type ReflectionDigest struct {
	MonthLabel    string
	TotalSpent    string
	CategoryLines []string
	EmotionLines  []string
	WentWell      string
	ToImprove     string
}

// GenerateReflectionInsight produces a short observation about the
// month's spending and mood patterns for the user's monthly reflection.
func (c *Client) GenerateReflectionInsight(ctx context.Context, digest ReflectionDigest) (string, error) {
	if c.generator == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}
	if len(digest.CategoryLines) == 0 && len(digest.EmotionLines) == 0 {
		return "", fmt.Errorf("no spending data to reflect on")
	}

	prompt := buildInsightPrompt(digest)

	timeoutCtx, cancel := context.WithTimeout(ctx, GenerateInsightTimeout)
	defer cancel()

	temp := float32(0.7)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(400),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You are a thoughtful personal finance companion. Respond with plain text only, no markdown, no lists, no preamble."},
			},
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
		logger.Log.Error().Err(err).Msg("GenerateReflectionInsight: Gemini API call failed")
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	if resp == nil {
		return "", fmt.Errorf("no response from Gemini")
	}

	insight := strings.TrimSpace(resp.Text())
	if insight == "" {
		return "", fmt.Errorf("no text content in response")
	}

	insight = strings.Join(strings.Fields(insight), " ")
	if len(insight) > maxInsightLength {
		insight = strings.TrimSpace(insight[:maxInsightLength])
	}

	return insight, nil
}

func buildInsightPrompt(d ReflectionDigest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Here is a summary of my spending for %s.\n", SanitizeForPrompt(d.MonthLabel, 40))
	if d.TotalSpent != "" {
		fmt.Fprintf(&sb, "Total spent: %s\n", SanitizeForPrompt(d.TotalSpent, 40))
	}

	if len(d.CategoryLines) > 0 {
		sb.WriteString("\nSpending by category:\n")
		for _, line := range d.CategoryLines {
			fmt.Fprintf(&sb, "- %s\n", SanitizeForPrompt(line, 80))
		}
	}

	if len(d.EmotionLines) > 0 {
		sb.WriteString("\nHow I felt when spending:\n")
		for _, line := range d.EmotionLines {
			fmt.Fprintf(&sb, "- %s\n", SanitizeForPrompt(line, 80))
		}
	}

	if d.WentWell != "" {
		fmt.Fprintf(&sb, "\nWhat I think went well: %s\n", SanitizeForPrompt(d.WentWell, MaxDescriptionLength))
	}
	if d.ToImprove != "" {
		fmt.Fprintf(&sb, "What I want to improve: %s\n", SanitizeForPrompt(d.ToImprove, MaxDescriptionLength))
	}

	sb.WriteString(`
Write 2-3 sentences observing one meaningful pattern in this month,
connecting emotions to spending where the data supports it. Be specific
and kind, never preachy. Do not repeat the numbers back verbatim.`)

	return sb.String()
}
