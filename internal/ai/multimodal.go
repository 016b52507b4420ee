package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type MultimodalConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// MalformedResponseError reports a model response whose shape did not match
// the expected nesting; Raw carries the full body for debugging.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response (%s): %s", e.Reason, e.Raw)
}

// MultimodalClient calls a DashScope-style multimodal generation endpoint
// with one image and one text question per request.
type MultimodalClient struct {
	httpClient *http.Client
}

func NewMultimodalClient() *MultimodalClient {
	return &MultimodalClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

type contentPart struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Answer sends the base64 data-URL encoded image and the question, and
// returns the answer text. The response content may be a plain string or a
// list of text fragments; both are accepted, anything else is malformed.
func (c *MultimodalClient) Answer(ctx context.Context, cfg MultimodalConfig, imageDataURL, question string) (string, error) {
	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": map[string]interface{}{
			"messages": []map[string]interface{}{
				{
					"role": "user",
					"content": []contentPart{
						{Image: imageDataURL},
						{Text: question},
					},
				},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal model request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/services/aigc/multimodal-generation/generation"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("build model request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read model response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("model response status %d: %s", resp.StatusCode, string(raw))
	}

	return decodeAnswer(raw)
}

func decodeAnswer(raw []byte) (string, error) {
	var parsed struct {
		Output *struct {
			Choices []struct {
				Message *struct {
					Content json.RawMessage `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"output"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &MalformedResponseError{Reason: "not valid json", Raw: string(raw)}
	}
	if parsed.Output == nil {
		return "", &MalformedResponseError{Reason: "missing output", Raw: string(raw)}
	}
	if len(parsed.Output.Choices) == 0 {
		return "", &MalformedResponseError{Reason: "missing choices", Raw: string(raw)}
	}
	message := parsed.Output.Choices[0].Message
	if message == nil || len(message.Content) == 0 {
		return "", &MalformedResponseError{Reason: "missing message content", Raw: string(raw)}
	}

	// content is either a string or a list of {"text": ...} fragments.
	var text string
	if err := json.Unmarshal(message.Content, &text); err == nil {
		if text == "" {
			return "", &MalformedResponseError{Reason: "empty content", Raw: string(raw)}
		}
		return text, nil
	}

	var fragments []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(message.Content, &fragments); err != nil {
		return "", &MalformedResponseError{Reason: "unknown content shape", Raw: string(raw)}
	}
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(f.Text)
	}
	if b.Len() == 0 {
		return "", &MalformedResponseError{Reason: "empty content", Raw: string(raw)}
	}
	return b.String(), nil
}
