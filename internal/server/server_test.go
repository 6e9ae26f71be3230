package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbuslab/weatherbot/internal/a2a"
	"github.com/nimbuslab/weatherbot/internal/config"
	"github.com/nimbuslab/weatherbot/internal/weather"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// stubProvider counts invocations and returns canned answers.
type stubProvider struct {
	reportCalls int
	streamCalls int
	text        string
	err         error
}

func (p *stubProvider) Report(ctx context.Context, query string) (string, error) {
	p.reportCalls++
	return p.text, p.err
}

func (p *stubProvider) Stream(ctx context.Context, query string) <-chan weather.Update {
	p.streamCalls++
	updates := make(chan weather.Update, 3)
	updates <- weather.Update{Kind: weather.UpdateProgress, Text: "Searching for current weather in " + query + "..."}
	if p.err != nil {
		updates <- weather.Update{Kind: weather.UpdateResult, Err: p.err}
	} else {
		updates <- weather.Update{Kind: weather.UpdateProgress, Text: "Processing weather data and formatting response..."}
		updates <- weather.Update{Kind: weather.UpdateResult, Text: p.text}
	}
	close(updates)
	return updates
}

func newTestServer(t *testing.T, streaming bool, provider *stubProvider) *APIServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Agent.Streaming = streaming

	logger := newTestLogger()
	s, err := NewAPIServer(cfg, provider, a2a.NewTaskManager(nil, logger), nil, logger)
	require.NoError(t, err)
	return s
}

func doJSON(s *APIServer, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func taskBody(t *testing.T, id, text string) []byte {
	t.Helper()
	body, err := json.Marshal(a2a.TaskRequest{ID: id, Message: a2a.NewUserMessage(text)})
	require.NoError(t, err)
	return body
}

func TestAgentCardIdempotent(t *testing.T) {
	s := newTestServer(t, true, &stubProvider{})

	first := doJSON(s, http.MethodGet, a2a.WellKnownCardPath, nil)
	second := doJSON(s, http.MethodGet, a2a.WellKnownCardPath, nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	var card a2a.AgentCard
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &card))
	assert.Equal(t, "WeatherBot", card.Name)
	assert.True(t, card.Capabilities.Streaming)
	assert.False(t, card.Capabilities.PushNotifications)
}

func TestLegacyModeServesLegacyCard(t *testing.T) {
	s := newTestServer(t, false, &stubProvider{})

	rec := doJSON(s, http.MethodGet, a2a.WellKnownLegacyPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var card a2a.AgentCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.False(t, card.Capabilities.Streaming)

	// The current well-known path is not mounted in legacy mode
	rec = doJSON(s, http.MethodGet, a2a.WellKnownCardPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendTask(t *testing.T) {
	provider := &stubProvider{text: "Tokyo is 22°C (72°F), partly cloudy."}
	s := newTestServer(t, true, provider)

	rec := doJSON(s, http.MethodPost, "/tasks/send", taskBody(t, "t1", "weather in Tokyo"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp a2a.TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "t1", resp.ID)
	assert.Equal(t, a2a.TaskStateCompleted, resp.Status.State)
	require.Len(t, resp.Parts, 1)
	assert.Contains(t, resp.Parts[0].Text, "22°C")
	assert.Equal(t, 1, provider.reportCalls)
}

func TestSendTaskValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty parts", `{"id": "t1", "message": {"role": "user", "parts": []}}`},
		{"blank text", `{"id": "t1", "message": {"role": "user", "parts": [{"text": "  "}]}}`},
		{"missing message", `{"id": "t1"}`},
		{"not json", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{text: "should not run"}
			s := newTestServer(t, true, provider)

			rec := doJSON(s, http.MethodPost, "/tasks/send", []byte(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, "error")
			assert.Equal(t, 0, provider.reportCalls, "provider must not be invoked")
			assert.Equal(t, 0, provider.streamCalls)
		})
	}
}

func TestSendTaskProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("search provider unreachable")}
	s := newTestServer(t, true, provider)

	rec := doJSON(s, http.MethodPost, "/tasks/send", taskBody(t, "t2", "weather in Tokyo"))

	// Task-level failure rides a normal transport response
	require.Equal(t, http.StatusOK, rec.Code)

	var resp a2a.TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "t2", resp.ID)
	assert.Equal(t, a2a.TaskStateFailed, resp.Status.State)
	require.Len(t, resp.Parts, 1)
	assert.Contains(t, resp.Parts[0].Text, "error getting weather data")
}

func TestTaskRecordInspectable(t *testing.T) {
	provider := &stubProvider{text: "sunny"}
	s := newTestServer(t, true, provider)

	doJSON(s, http.MethodPost, "/tasks/send", taskBody(t, "t3", "weather"))

	rec := doJSON(s, http.MethodGet, "/tasks/t3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var task a2a.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "weather_report", task.Artifacts[0].Name)

	rec = doJSON(s, http.MethodGet, "/tasks/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func decodeChunks(t *testing.T, body string) []a2a.TaskChunk {
	t.Helper()
	var chunks []a2a.TaskChunk
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk a2a.TaskChunk
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk))
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestStreamTask(t *testing.T) {
	provider := &stubProvider{text: "Oslo is 5°C and crisp."}
	s := newTestServer(t, true, provider)

	rec := doJSON(s, http.MethodPost, "/tasks/stream", taskBody(t, "t4", "Oslo"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	chunks := decodeChunks(t, rec.Body.String())
	require.Len(t, chunks, 3)

	// Exactly one final chunk, and it is last
	for i, chunk := range chunks[:len(chunks)-1] {
		assert.False(t, chunk.Final, "chunk %d", i)
		assert.Equal(t, a2a.TaskStateWorking, chunk.Status.State)
	}
	last := chunks[len(chunks)-1]
	assert.True(t, last.Final)
	assert.Equal(t, a2a.TaskStateCompleted, last.Status.State)
	assert.Equal(t, "t4", last.ID)
	assert.Contains(t, last.Parts[0].Text, "5°C")
	assert.Equal(t, 1, provider.streamCalls)
}

func TestStreamTaskValidation(t *testing.T) {
	provider := &stubProvider{}
	s := newTestServer(t, true, provider)

	rec := doJSON(s, http.MethodPost, "/tasks/stream", []byte(`{"id": "t5", "message": {"role": "user", "parts": []}}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, provider.streamCalls)
}

func TestStreamTaskProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("boom")}
	s := newTestServer(t, true, provider)

	rec := doJSON(s, http.MethodPost, "/tasks/stream", taskBody(t, "t6", "Oslo"))
	require.Equal(t, http.StatusOK, rec.Code)

	chunks := decodeChunks(t, rec.Body.String())
	require.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	assert.True(t, last.Final)
	assert.Equal(t, a2a.TaskStateFailed, last.Status.State)
	assert.Contains(t, last.Parts[0].Text, "error getting weather data")
}

func TestLegacySendTask(t *testing.T) {
	provider := &stubProvider{text: "London is 15°C, drizzle."}
	s := newTestServer(t, false, provider)

	rec := doJSON(s, http.MethodPost, "/tasks/send", taskBody(t, "t7", "weather in London"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp a2a.LegacyTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "t7", resp.ID)
	assert.Equal(t, a2a.TaskStateCompleted, resp.Status.State)
	require.Len(t, resp.Messages, 2)
	// The request message comes back first, then the agent reply
	assert.Equal(t, a2a.RoleUser, resp.Messages[0].Role)
	assert.Equal(t, "weather in London", resp.Messages[0].Parts[0].Text)
	assert.Equal(t, a2a.RoleAgent, resp.Messages[1].Role)
	assert.Contains(t, resp.Messages[1].Parts[0].Text, "15°C")
}

func TestLegacyModeHasNoStreamEndpoint(t *testing.T) {
	s := newTestServer(t, false, &stubProvider{})

	rec := doJSON(s, http.MethodPost, "/tasks/stream", taskBody(t, "t8", "weather"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, true, &stubProvider{})

	rec := doJSON(s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}
