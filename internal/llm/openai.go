// OpenAI-compatible chat completions provider. Also covers local
// endpoints (Ollama, llama.cpp) that speak the same protocol.
package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	openAIDefaultURL   = "https://api.openai.com"
	openAIDefaultModel = "gpt-4o-mini"
)

type openAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func newOpenAIProvider(baseURL, apiKey, model string) *openAIProvider {
	if baseURL == "" {
		baseURL = openAIDefaultURL
	}
	if model == "" {
		model = openAIDefaultModel
	}
	return &openAIProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: newHTTPClient(),
	}
}

func (p *openAIProvider) Name() string { return "openai" }

type openAIRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Messages  []message `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *openAIProvider) Complete(system, userPrompt string, maxTokens int) (string, error) {
	req := openAIRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequest("POST", p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &apiError{status: resp.StatusCode, body: string(respBody)}
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}

	slog.Debug("openai call",
		"model", p.model,
		"prompt_tokens", apiResp.Usage.PromptTokens,
		"completion_tokens", apiResp.Usage.CompletionTokens,
	)

	return apiResp.Choices[0].Message.Content, nil
}
