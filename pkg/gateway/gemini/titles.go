package gemini

import (
	"context"
	"strings"
)

// DefaultTitle is used whenever title generation fails or the
// transcript is empty. Title generation is best effort.
const DefaultTitle = "New conversation"

const titleSystemPrompt = "You generate short conversation titles."

// TranscriptTurn is a consolidated voice turn used for titling.
type TranscriptTurn struct {
	Role string
	Text string
}

// ConversationTitle derives a short title from the first user message
// of a text conversation. The returned title is always usable; a
// non-nil error means the default came back and the caller may want to
// log why.
func (c *Client) ConversationTitle(ctx context.Context, model, firstMessage string) (string, error) {
	prompt := "Generate a concise 3-6 word title for a coaching conversation that starts with this message. " +
		"Return ONLY the title, nothing else:\n\n\"" + firstMessage + "\""
	raw, err := c.Generate(ctx, model, titleSystemPrompt, prompt, 0.3, 20)
	if err != nil {
		return DefaultTitle, err
	}
	return cleanTitle(raw), nil
}

// VoiceSessionTitle derives a title from the whole session transcript,
// capped to keep the prompt small.
func (c *Client) VoiceSessionTitle(ctx context.Context, model string, turns []TranscriptTurn) (string, error) {
	transcript := buildTranscript(turns)
	if transcript == "" {
		return DefaultTitle, nil
	}
	prompt := "Generate a concise 3-6 word title that captures the main topic of this coaching conversation. " +
		"Return ONLY the title, nothing else.\n\n" + transcript
	raw, err := c.Generate(ctx, model, titleSystemPrompt, prompt, 0.3, 20)
	if err != nil {
		return DefaultTitle, err
	}
	return cleanTitle(raw), nil
}

func buildTranscript(turns []TranscriptTurn) string {
	var lines []string
	total := 0
	for _, turn := range turns {
		label := "Coach"
		if turn.Role == "user" {
			label = "User"
		}
		line := label + ": " + turn.Text
		if total+len(line) > 800 {
			break
		}
		lines = append(lines, line)
		total += len(line)
	}
	return strings.Join(lines, "\n")
}

func cleanTitle(raw string) string {
	title := strings.Trim(strings.TrimSpace(raw), `"`)
	if title == "" {
		return DefaultTitle
	}
	if runes := []rune(title); len(runes) > 50 {
		title = string(runes[:50])
	}
	return title
}
