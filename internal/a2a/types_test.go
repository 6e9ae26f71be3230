package a2a

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		want    string
		wantErr bool
	}{
		{
			name:    "single text part",
			message: NewUserMessage("weather in Tokyo"),
			want:    "weather in Tokyo",
		},
		{
			name: "multiple parts joined",
			message: Message{Role: RoleUser, Parts: []Part{
				{Text: "weather"},
				{Text: "in Berlin"},
			}},
			want: "weather\nin Berlin",
		},
		{
			name: "whitespace-only parts skipped",
			message: Message{Role: RoleUser, Parts: []Part{
				{Text: "   "},
				{Text: "London"},
			}},
			want: "London",
		},
		{
			name:    "no parts",
			message: Message{Role: RoleUser, Parts: []Part{}},
			wantErr: true,
		},
		{
			name: "only empty parts",
			message: Message{Role: RoleUser, Parts: []Part{
				{Text: ""},
				{Text: "  "},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TextFromMessage(tt.message)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoTextPart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskStateTerminal(t *testing.T) {
	assert.False(t, TaskStateSubmitted.Terminal())
	assert.False(t, TaskStateWorking.Terminal())
	assert.True(t, TaskStateCompleted.Terminal())
	assert.True(t, TaskStateFailed.Terminal())
}

func TestTaskRequestWireFormat(t *testing.T) {
	raw := `{"id": "t1", "message": {"role": "user", "parts": [{"text": "weather in Tokyo"}]}}`

	var req TaskRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &req))

	assert.Equal(t, "t1", req.ID)
	assert.Equal(t, RoleUser, req.Message.Role)
	require.Len(t, req.Message.Parts, 1)
	assert.Equal(t, "weather in Tokyo", req.Message.Parts[0].Text)
}

func TestAgentCardWireFormat(t *testing.T) {
	card := AgentCard{
		Name:         "WeatherBot",
		Description:  "test agent",
		URL:          "http://127.0.0.1:8000",
		Version:      "1.0.0",
		Capabilities: AgentCapabilities{Streaming: true},
	}

	data, err := json.Marshal(card)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "WeatherBot", decoded["name"])
	caps, ok := decoded["capabilities"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, caps["streaming"])
	// pushNotifications must always be present, even when false
	assert.Contains(t, caps, "pushNotifications")
}
