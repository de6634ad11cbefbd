package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIChat talks to an OpenAI-compatible chat-completions endpoint. Both
// the hosted review provider and the local fallback model speak this wire
// format.
type OpenAIChat struct {
	apiKey  string
	baseURL string
	model   string
	headers map[string]string
	client  *http.Client
}

// NewOpenAIChat creates a chat client for one API key. Extra headers are
// attached to every request (some gateways require tenant routing headers).
func NewOpenAIChat(apiKey, baseURL, model string, headers map[string]string) *OpenAIChat {
	return &OpenAIChat{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		headers: headers,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *OpenAIChat) Name() string { return "openai:" + c.model }

func (c *OpenAIChat) Chat(ctx context.Context, question, system string) (string, error) {
	var messages []chatMessage
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: question})

	payload, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode == 401 || httpResp.StatusCode == 403 {
		return "", fmt.Errorf("authentication failed (status %d): %s", httpResp.StatusCode, respBody)
	}
	if httpResp.StatusCode >= 500 {
		return "", fmt.Errorf("server error (status %d): %s", httpResp.StatusCode, respBody)
	}
	if httpResp.StatusCode != 200 {
		return "", fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	if result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty text content in API response")
	}
	return result.Choices[0].Message.Content, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}
