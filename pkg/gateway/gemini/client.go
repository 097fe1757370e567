// Package gemini is a minimal client for the Gemini REST API, covering
// the two calls the gateway makes: streamed chat turns and short
// one-shot generations for titles.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message is one prior turn of a conversation. Role is "user" or "model".
type Message struct {
	Role string
	Text string
}

// Generate performs a non-streaming generation and returns the text of
// the first candidate.
func (c *Client) Generate(ctx context.Context, model, system, prompt string, temperature float64, maxTokens int) (string, error) {
	req := buildRequest(system, []Message{{Role: "user", Text: prompt}}, temperature, maxTokens)

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	resp, err := c.do(ctx, url, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.text(), nil
}

// StreamChat streams a chat turn, invoking onDelta for each text chunk.
// History carries prior turns in order; the last entry is the pending
// user message.
func (c *Client) StreamChat(ctx context.Context, model, system string, history []Message, onDelta func(text string) error) error {
	req := buildRequest(system, history, 0.6, 1024)

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, model)
	resp, err := c.do(ctx, url, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}
		var chunk generateResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue // skip unparseable chunks
		}
		if text := chunk.text(); text != "" {
			if err := onDelta(text); err != nil {
				return err
			}
		}
	}
}

func (c *Client) do(ctx context.Context, url string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	return c.httpClient.Do(req)
}
