package config

import (
	"time"

	"github.com/nimbuslab/weatherbot/pkg/utils"
)

// AppConfig is the main configuration structure for the application
type AppConfig struct {
	Agent   AgentConfig     `yaml:"agent" json:"agent"`
	HTTP    HTTPConfig      `yaml:"http" json:"http"`
	Search  SearchConfig    `yaml:"search" json:"search"`
	LLM     LLMConfig       `yaml:"llm" json:"llm"`
	Gateway GatewayConfig   `yaml:"gateway" json:"gateway"`
	Logging utils.LogConfig `yaml:"logging" json:"logging"`
}

// AgentConfig contains the agent identity published in the discovery card
type AgentConfig struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`
	URL         string `yaml:"url" json:"url"`
	// Streaming selects the protocol variant: when false the server runs
	// in legacy mode (agent.json card, single-shot /tasks/send only).
	Streaming bool `yaml:"streaming" json:"streaming"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// SearchConfig contains the web search provider configuration
type SearchConfig struct {
	APIKey     string        `yaml:"api_key" json:"api_key"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	MaxResults int           `yaml:"max_results" json:"max_results"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// LLMConfig contains the text-generation provider configuration
type LLMConfig struct {
	APIKey      string        `yaml:"api_key" json:"api_key"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Model       string        `yaml:"model" json:"model"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float32       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// GatewayConfig toggles the websocket event gateway
type GatewayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Agent: AgentConfig{
			Name:        "WeatherBot",
			Version:     "1.0.0",
			Description: "Get current weather information for any city using real-time data with AI-enhanced summaries",
			Streaming:   true,
		},
		HTTP: HTTPConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Search: SearchConfig{
			MaxResults: 3,
			Timeout:    30 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.2,
			Timeout:     60 * time.Second,
		},
		Gateway: GatewayConfig{
			Enabled: false,
		},
		Logging: utils.DefaultLogConfig(),
	}
}
