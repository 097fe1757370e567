package gemini

// Gemini API request/response shapes. The API uses camelCase JSON.

type geminiRequest struct {
	Contents          []geminiContent       `json:"contents"`
	SystemInstruction *geminiContent        `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig      `json:"generationConfig,omitempty"`
	SafetySettings    []geminiSafetySetting `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Coaching conversations routinely discuss sensitive topics; the
// built-in filters are turned off and boundaries are enforced in the
// system prompt instead.
var safetySettings = []geminiSafetySetting{
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "OFF"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "OFF"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "OFF"},
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "OFF"},
}

func buildRequest(system string, history []Message, temperature float64, maxTokens int) geminiRequest {
	contents := make([]geminiContent, 0, len(history))
	for _, msg := range history {
		contents = append(contents, geminiContent{
			Role:  msg.Role,
			Parts: []geminiPart{{Text: msg.Text}},
		})
	}
	topP := 0.95
	return geminiRequest{
		Contents:          contents,
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		GenerationConfig: &geminiGenConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			MaxOutputTokens: &maxTokens,
		},
		SafetySettings: safetySettings,
	}
}

type generateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}
