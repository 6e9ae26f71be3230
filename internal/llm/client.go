// Package llm wraps the hosted text-generation provider behind a single
// summarization method.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/search"
)

const summaryPromptTemplate = `Based on the following weather search results, provide a concise and well-formatted weather summary for %s.

Raw weather data:
%s

Please provide:
1. Current temperature and conditions, in both metric and imperial units
2. Key weather details (humidity, wind, etc.)
3. A short, friendly remark about the conditions

Keep the response under 150 words and make it clear and easy to read. If the data does not clearly identify a location, note the ambiguity.`

// Summarizer is the single-method interface the capability provider depends
// on, so test doubles can replace the real text-generation service.
type Summarizer interface {
	Summarize(ctx context.Context, query string, results []search.Result) (string, error)
}

// Config contains the text-generation provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// Client generates weather summaries through an OpenAI-compatible API.
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      *logrus.Logger
}

// NewClient creates an LLM client. BaseURL may point at any
// OpenAI-compatible endpoint.
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Summarize turns raw search hits into a formatted weather answer for the
// user's query. The provider response is returned verbatim.
func (c *Client) Summarize(ctx context.Context, query string, results []search.Result) (string, error) {
	var data []string
	for _, result := range results {
		data = append(data, fmt.Sprintf("%s: %s", result.Title, result.Content))
	}

	prompt := fmt.Sprintf(summaryPromptTemplate, query, strings.Join(data, "\n\n"))

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a specialized weather assistant. Format weather information in a friendly, readable way.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to get LLM response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debugf("LLM summary generated (%d chars)", len(content))

	return content, nil
}
