package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tracemed-ai/platform/pkg/common/logger"
)

// ErrEmptyCompletion is returned when the completion endpoint answers with
// no choices; callers treat it the same as a transport failure.
var ErrEmptyCompletion = errors.New("oracle: empty completion")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenProb struct {
	Token   string  `json:"token"`
	LogProb float64 `json:"logprob"`
}

type Options struct {
	MaxTokens   int
	Temperature float64
}

// Schema constrains a structured completion to one string value, optionally
// drawn from a closed set. The oracle is forced into a function call so the
// caller never has to parse free text.
type Schema struct {
	Name        string
	Description string
	Enum        []string
}

// Client is the interface the pipeline stages program against. The semantic
// work of every stage is delegated through these three calls.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
	CompleteStructured(ctx context.Context, messages []Message, schema Schema) (string, error)
	CompleteWithConfidence(ctx context.Context, messages []Message) (string, []TokenProb, error)
}

// ChatClient talks to an OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewChatClient(apiKey, baseURL, model string, timeout time.Duration) *ChatClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *ChatClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	payload := c.basePayload(messages, opts)
	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *ChatClient) CompleteStructured(ctx context.Context, messages []Message, schema Schema) (string, error) {
	property := map[string]interface{}{"type": "string"}
	if len(schema.Enum) > 0 {
		property["enum"] = schema.Enum
	}
	if schema.Description != "" {
		property["description"] = schema.Description
	}

	payload := c.basePayload(messages, Options{})
	payload["tools"] = []map[string]interface{}{{
		"type": "function",
		"function": map[string]interface{}{
			"name": schema.Name,
			"parameters": map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"value": property},
				"required":   []string{"value"},
			},
		},
	}}
	payload["tool_choice"] = map[string]interface{}{
		"type":     "function",
		"function": map[string]interface{}{"name": schema.Name},
	}

	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return "", ErrEmptyCompletion
	}

	var args struct {
		Value string `json:"value"`
	}
	raw := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return "", fmt.Errorf("oracle: decoding function arguments: %w", err)
	}
	return args.Value, nil
}

func (c *ChatClient) CompleteWithConfidence(ctx context.Context, messages []Message) (string, []TokenProb, error) {
	payload := c.basePayload(messages, Options{})
	payload["logprobs"] = true
	payload["top_logprobs"] = 1

	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	probs := make([]TokenProb, 0, len(choice.LogProbs.Content))
	for _, entry := range choice.LogProbs.Content {
		probs = append(probs, TokenProb{Token: entry.Token, LogProb: entry.LogProb})
	}
	return choice.Message.Content, probs, nil
}

func (c *ChatClient) basePayload(messages []Message, opts Options) map[string]interface{} {
	payload := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}
	return payload
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		LogProbs struct {
			Content []struct {
				Token   string  `json:"token"`
				LogProb float64 `json:"logprob"`
			} `json:"content"`
		} `json:"logprobs"`
	} `json:"choices"`
}

func (c *ChatClient) post(ctx context.Context, payload map[string]interface{}) (*completionResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("oracle: marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("oracle: completion endpoint returned %d", resp.StatusCode)
			logger.Log.WithField("status", resp.StatusCode).Warn("oracle call retrying")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("oracle: completion endpoint returned %d: %s", resp.StatusCode, truncate(data, 200))
		}

		var result completionResponse
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("oracle: decoding response: %w", err)
		}
		return &result, nil
	}
	return nil, lastErr
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
