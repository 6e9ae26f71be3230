// Package client implements the consumer side of the protocol: agent
// discovery, blocking task submission and streamed task submission.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/a2a"
)

// TaskResult is the normalized outcome of a task, independent of which
// envelope variant the server speaks.
type TaskResult struct {
	ID     string
	Status a2a.TaskStatus
	Text   string
}

// Failed reports whether the task ended in a failure state.
func (r TaskResult) Failed() bool {
	return r.Status.State == a2a.TaskStateFailed
}

// Client talks to one agent endpoint. Discover must succeed before tasks
// can be submitted.
type Client struct {
	baseURL    string
	httpClient *http.Client
	card       *a2a.AgentCard
	logger     *logrus.Logger
}

// Config contains configuration for the client
type Config struct {
	Timeout time.Duration
}

// NewClient creates a client for the agent at baseURL.
func NewClient(baseURL string, cfg *Config, logger *logrus.Logger) *Client {
	timeout := 120 * time.Second
	if cfg != nil && cfg.Timeout != 0 {
		timeout = cfg.Timeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Card returns the discovered agent card, or nil before discovery.
func (c *Client) Card() *a2a.AgentCard {
	return c.card
}

// Streaming reports whether the discovered agent advertises streaming.
func (c *Client) Streaming() bool {
	return c.card != nil && c.card.Capabilities.Streaming
}

// Discover fetches the agent card, trying the current well-known path
// first and falling back to the legacy one. A failure here is fatal to
// the session: there is no agent to talk to.
func (c *Client) Discover(ctx context.Context) (*a2a.AgentCard, error) {
	var lastErr error
	for _, path := range []string{a2a.WellKnownCardPath, a2a.WellKnownLegacyPath} {
		card, err := c.fetchCard(ctx, c.baseURL+path)
		if err == nil {
			c.card = card
			c.logger.Debugf("Discovered agent %q (streaming=%v)", card.Name, card.Capabilities.Streaming)
			return card, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("could not discover agent: %w", lastErr)
}

func (c *Client) fetchCard(ctx context.Context, url string) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get agent card: %s - %s", resp.Status, string(body))
	}

	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("failed to decode agent card: %w", err)
	}

	if card.Name == "" {
		return nil, fmt.Errorf("malformed agent card: missing name")
	}

	return &card, nil
}

// SendTask submits a query and blocks until the complete answer arrives.
// The envelope is chosen by the discovered card: legacy agents answer
// with an echoed-message envelope, current ones with a parts envelope.
func (c *Client) SendTask(ctx context.Context, text string) (*TaskResult, error) {
	if c.card == nil {
		return nil, fmt.Errorf("agent not discovered")
	}

	taskID := uuid.NewString()
	body, err := json.Marshal(a2a.TaskRequest{
		ID:      taskID,
		Message: a2a.NewUserMessage(text),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks/send", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send task: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("task send failed: %s - %s", resp.Status, string(respBody))
	}

	if c.Streaming() {
		var taskResp a2a.TaskResponse
		if err := json.NewDecoder(resp.Body).Decode(&taskResp); err != nil {
			return nil, fmt.Errorf("failed to decode task response: %w", err)
		}
		return &TaskResult{
			ID:     taskResp.ID,
			Status: taskResp.Status,
			Text:   joinParts(taskResp.Parts),
		}, nil
	}

	var legacy a2a.LegacyTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&legacy); err != nil {
		return nil, fmt.Errorf("failed to decode task response: %w", err)
	}

	return &TaskResult{
		ID:     legacy.ID,
		Status: legacy.Status,
		Text:   lastAgentText(legacy.Messages),
	}, nil
}

// StreamTask submits a query over the streaming endpoint and returns the
// chunks in arrival order. The channel is closed after the final chunk
// or on stream error; ctx cancellation tears the stream down.
func (c *Client) StreamTask(ctx context.Context, text string) (<-chan a2a.TaskChunk, error) {
	if c.card == nil {
		return nil, fmt.Errorf("agent not discovered")
	}

	taskID := uuid.NewString()
	body, err := json.Marshal(a2a.TaskRequest{
		ID:      taskID,
		Message: a2a.NewUserMessage(text),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tasks/stream", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("streaming failed: %s - %s", resp.Status, string(respBody))
	}

	chunks := make(chan a2a.TaskChunk)
	go c.readStream(ctx, resp.Body, chunks)

	return chunks, nil
}

// readStream parses "data:" lines off the SSE body into chunks. It stops
// after the final chunk; nothing may follow it.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- a2a.TaskChunk) {
	defer close(chunks)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var chunk a2a.TaskChunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			c.logger.Warnf("Skipping malformed stream chunk: %v", err)
			continue
		}

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return
		}

		if chunk.Final {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warnf("Stream read error: %v", err)
	}
}

func joinParts(parts []a2a.Part) string {
	var texts []string
	for _, part := range parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// lastAgentText extracts the reply from a legacy envelope: the text of
// the last agent-role message.
func lastAgentText(messages []a2a.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == a2a.RoleAgent {
			return joinParts(messages[i].Parts)
		}
	}
	return ""
}
