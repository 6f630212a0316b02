package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/normanking/taskdeck/internal/config"
)

// GeminiBrain speaks the Gemini generateContent API with function
// declarations.
type GeminiBrain struct {
	baseURL string
	apiKey  string
	model   string
	temp    float64
	client  *http.Client
}

// NewGeminiBrain creates a new Gemini client.
func NewGeminiBrain(cfg config.ModelConfig) (*GeminiBrain, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiBrain{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Provider returns "gemini".
func (b *GeminiBrain) Provider() string { return "gemini" }

// Ping checks that an API key is configured.
func (b *GeminiBrain) Ping(ctx context.Context) error {
	if b.apiKey == "" {
		return fmt.Errorf("%w: API key is not configured", ErrAuthentication)
	}
	return nil
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTools   `json:"tools,omitempty"`
	GenerationConfig  *geminiGenCfg   `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string          `json:"text,omitempty"`
	FunctionCall     *geminiFnCall   `json:"functionCall,omitempty"`
	FunctionResponse *geminiFnResult `json:"functionResponse,omitempty"`
}

type geminiFnCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFnResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTools struct {
	FunctionDeclarations []geminiFnDecl `json:"functionDeclarations"`
}

type geminiFnDecl struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  *geminiSchema `json:"parameters,omitempty"`
}

type geminiSchema struct {
	Type       string                `json:"type"`
	Properties map[string]geminiProp `json:"properties,omitempty"`
	Required   []string              `json:"required,omitempty"`
}

type geminiProp struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type geminiGenCfg struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Complete sends one generateContent request.
func (b *GeminiBrain) Complete(ctx context.Context, req *Request) (*Response, error) {
	wireReq := geminiRequest{
		Contents: toGeminiContents(req.Messages),
		GenerationConfig: &geminiGenCfg{
			Temperature: temperature(req.Temperature, b.temp),
		},
	}
	if req.System != "" {
		wireReq.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		wireReq.Tools = []geminiTools{{FunctionDeclarations: toGeminiDecls(req.Tools)}}
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", b.baseURL, b.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, resp.Body)
	}

	var wireResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&wireResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(wireResp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	out := &Response{
		Usage: TokenUsage{
			PromptTokens:     wireResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: wireResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      wireResp.UsageMetadata.TotalTokenCount,
		},
	}

	var text strings.Builder
	for i, part := range wireResp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			// Gemini does not assign call IDs, so synthesize
			// stable ones for the round trip.
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d", i),
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}
	out.Content = text.String()

	return out, nil
}

// toGeminiContents converts neutral messages to Gemini contents.
// Assistant messages map to role "model"; tool results become
// functionResponse parts on a "user" turn.
func toGeminiContents(msgs []Message) []geminiContent {
	contents := make([]geminiContent, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "assistant":
			content := geminiContent{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, geminiPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				content.Parts = append(content.Parts, geminiPart{
					FunctionCall: &geminiFnCall{Name: tc.Name, Args: tc.Arguments},
				})
			}
			contents = append(contents, content)
		case "tool":
			var result map[string]any
			if err := json.Unmarshal([]byte(m.Content), &result); err != nil {
				result = map[string]any{"output": m.Content}
			}
			contents = append(contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{
					FunctionResponse: &geminiFnResult{Name: m.ToolName, Response: result},
				}},
			})
		default:
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}
	return contents
}

func toGeminiDecls(specs []ToolSpec) []geminiFnDecl {
	decls := make([]geminiFnDecl, 0, len(specs))
	for _, spec := range specs {
		decl := geminiFnDecl{
			Name:        spec.Name,
			Description: spec.Description,
		}
		if spec.Parameters != nil {
			schema := &geminiSchema{
				Type:       strings.ToUpper(spec.Parameters.Type),
				Properties: make(map[string]geminiProp, len(spec.Parameters.Properties)),
				Required:   spec.Parameters.Required,
			}
			for name, prop := range spec.Parameters.Properties {
				schema.Properties[name] = geminiProp{
					Type:        strings.ToUpper(prop.Type),
					Description: prop.Description,
				}
			}
			decl.Parameters = schema
		}
		decls = append(decls, decl)
	}
	return decls
}
