package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/normanking/taskdeck/internal/config"
)

// OpenAIBrain is an OpenAI-compatible chat-completions client with
// function calling.
type OpenAIBrain struct {
	baseURL string
	apiKey  string
	model   string
	temp    float64
	client  *http.Client
}

// NewOpenAIBrain creates a new OpenAI-compatible client.
func NewOpenAIBrain(cfg config.ModelConfig) (*OpenAIBrain, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIBrain{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Provider returns "openai".
func (b *OpenAIBrain) Provider() string { return "openai" }

// Ping checks that an API key is configured.
func (b *OpenAIBrain) Ping(ctx context.Context) error {
	if b.apiKey == "" {
		return fmt.Errorf("%w: API key is not configured", ErrAuthentication)
	}
	return nil
}

// openaiRequest is the chat-completions request body.
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Tools       []openaiTool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openaiTool struct {
	Type     string         `json:"type"`
	Function openaiFunction `json:"function"`
}

type openaiFunction struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  *openaiSchema `json:"parameters,omitempty"`
}

type openaiSchema struct {
	Type       string                `json:"type"`
	Properties map[string]openaiProp `json:"properties,omitempty"`
	Required   []string              `json:"required,omitempty"`
}

type openaiProp struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

type openaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one chat-completions request.
func (b *OpenAIBrain) Complete(ctx context.Context, req *Request) (*Response, error) {
	wireReq := openaiRequest{
		Model:       b.model,
		Messages:    b.toWireMessages(req),
		Temperature: temperature(req.Temperature, b.temp),
	}
	if len(req.Tools) > 0 {
		wireReq.Tools = toOpenAITools(req.Tools)
		wireReq.ToolChoice = "auto"
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", b.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, resp.Body)
	}

	var wireResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(wireResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	msg := wireResp.Choices[0].Message
	out := &Response{
		Content: msg.Content,
		Usage: TokenUsage{
			PromptTokens:     wireResp.Usage.PromptTokens,
			CompletionTokens: wireResp.Usage.CompletionTokens,
			TotalTokens:      wireResp.Usage.TotalTokens,
		},
	}

	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			// Malformed arguments become an empty map; ParseCall
			// fills in defaults for missing keys.
			json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return out, nil
}

// toWireMessages converts neutral messages to the OpenAI wire shape,
// prepending the system instruction.
func (b *OpenAIBrain) toWireMessages(req *Request) []openaiMessage {
	wire := make([]openaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		wire = append(wire, openaiMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		wm := openaiMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role == "tool" {
			wm.Name = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			wtc := openaiToolCall{ID: tc.ID, Type: "function"}
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = string(args)
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		wire = append(wire, wm)
	}

	return wire
}

func toOpenAITools(specs []ToolSpec) []openaiTool {
	tools := make([]openaiTool, 0, len(specs))
	for _, spec := range specs {
		fn := openaiFunction{
			Name:        spec.Name,
			Description: spec.Description,
		}
		if spec.Parameters != nil {
			schema := &openaiSchema{
				Type:       spec.Parameters.Type,
				Properties: make(map[string]openaiProp, len(spec.Parameters.Properties)),
				Required:   spec.Parameters.Required,
			}
			for name, prop := range spec.Parameters.Properties {
				schema.Properties[name] = openaiProp{
					Type:        prop.Type,
					Description: prop.Description,
					Default:     prop.Default,
				}
			}
			fn.Parameters = schema
		}
		tools = append(tools, openaiTool{Type: "function", Function: fn})
	}
	return tools
}

// statusError maps an HTTP failure status to a typed service error.
func statusError(status int, body io.Reader) error {
	detail, _ := io.ReadAll(io.LimitReader(body, 2048))
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, status, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuthentication, status, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, status, detail)
	}
}

func temperature(reqTemp, defaultTemp float64) float64 {
	if reqTemp > 0 {
		return reqTemp
	}
	return defaultTemp
}
