// Package a2a contains the wire types for the agent-to-agent task protocol:
// the discovery card, the task envelope and the streaming chunk format.
package a2a

import (
	"errors"
	"strings"
	"time"
)

// Well-known discovery paths. The current card lives at WellKnownCardPath;
// agents running in legacy mode publish the same shape at WellKnownLegacyPath.
const (
	WellKnownCardPath   = "/.well-known/agent-card.json"
	WellKnownLegacyPath = "/.well-known/agent.json"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNoTextPart   = errors.New("message contains no text part")
)

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// Terminal reports whether no further state transitions are possible.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// AgentProvider identifies the organization operating the agent.
type AgentProvider struct {
	Organization string `json:"organization,omitempty"`
	URL          string `json:"url,omitempty"`
}

// AgentCapabilities advertises the optional protocol features an agent supports.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentSkill describes one capability the agent exposes for discovery.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCard is the discovery document served from the well-known path.
// It is built once at startup and never mutated, so it is safe to share
// across concurrent handlers.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	Provider           *AgentProvider    `json:"provider,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
	Skills             []AgentSkill      `json:"skills,omitempty"`
}

// Part is a single fragment of message content. Only text parts are used
// by this agent.
type Part struct {
	Text string `json:"text"`
}

// Message is an ordered sequence of parts attributed to a role.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// TaskRequest is the body of a task submission. The ID is caller-generated;
// uniqueness is the caller's responsibility and is not validated.
type TaskRequest struct {
	ID      string  `json:"id"`
	Message Message `json:"message"`
}

// TaskStatus carries the lifecycle state of a task and the time of the
// last transition.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// TaskResponse is the complete, non-streaming answer to a TaskRequest.
// Its ID always echoes the request ID.
type TaskResponse struct {
	ID     string     `json:"id"`
	Status TaskStatus `json:"status"`
	Parts  []Part     `json:"parts"`
}

// TaskChunk is one element of a streamed response. A stream contains zero
// or more progress chunks followed by exactly one chunk with Final set;
// nothing follows the final chunk.
type TaskChunk struct {
	ID     string     `json:"id"`
	Status TaskStatus `json:"status"`
	Parts  []Part     `json:"parts,omitempty"`
	Final  bool       `json:"final"`
}

// LegacyTaskResponse is the envelope returned by agents running in legacy
// mode: the request message echoed back followed by the agent reply.
type LegacyTaskResponse struct {
	ID       string     `json:"id"`
	Status   TaskStatus `json:"status"`
	Messages []Message  `json:"messages"`
}

// Task is the server-side record of a submitted task kept by the TaskManager.
type Task struct {
	ID        string     `json:"id"`
	Status    TaskStatus `json:"status"`
	History   []Message  `json:"history,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Artifact is a named output attached to a task record.
type Artifact struct {
	ArtifactID  string `json:"artifactId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parts       []Part `json:"parts"`
}

// NewTextPart creates a text part.
func NewTextPart(text string) Part {
	return Part{Text: text}
}

// NewUserMessage wraps a query string in a user-role message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{NewTextPart(text)}}
}

// NewAgentMessage wraps reply text in an agent-role message.
func NewAgentMessage(text string) Message {
	return Message{Role: RoleAgent, Parts: []Part{NewTextPart(text)}}
}

// NewStatus builds a TaskStatus stamped with the current time.
func NewStatus(state TaskState) TaskStatus {
	return TaskStatus{
		State:     state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// TextFromMessage extracts the query text from a message by joining its
// non-empty text parts. It returns ErrNoTextPart when nothing extractable
// is present, which callers must treat as a validation failure before any
// provider is invoked.
func TextFromMessage(msg Message) (string, error) {
	var texts []string
	for _, part := range msg.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	if len(texts) == 0 {
		return "", ErrNoTextPart
	}
	return strings.Join(texts, "\n"), nil
}
