// Package config loads the application configuration from a YAML file,
// expands environment references and applies environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nimbuslab/weatherbot/pkg/utils"
)

// LoadDotEnv loads a .env file from the working directory when present.
// Variables already set in the environment win over file values.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(path string, logger *logrus.Logger) (*AppConfig, error) {
	// Start with default configuration
	config := DefaultConfig()

	// Check if the config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("Configuration file %s not found, using defaults", path)
		// Still apply environment overrides even with defaults
		applyEnvironmentOverrides(config)
		return config, nil
	}

	// Read the configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration
	configString := utils.ExpandEnvVars(string(data))

	// Parse YAML
	if err := yaml.Unmarshal([]byte(configString), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables, then validate the result
	applyEnvironmentOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig checks if the configuration is valid
func validateConfig(config *AppConfig) error {
	if config.Agent.Name == "" {
		return fmt.Errorf("agent name cannot be empty")
	}

	if config.HTTP.Port <= 0 || config.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535")
	}

	if config.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive")
	}

	if config.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}

	return nil
}

// applyEnvironmentOverrides overrides configuration with environment variables
func applyEnvironmentOverrides(config *AppConfig) {
	// Agent overrides
	if name := os.Getenv("AGENT_NAME"); name != "" {
		config.Agent.Name = name
	}
	if version := os.Getenv("AGENT_VERSION"); version != "" {
		config.Agent.Version = version
	}
	if desc := os.Getenv("AGENT_DESCRIPTION"); desc != "" {
		config.Agent.Description = desc
	}
	if url := os.Getenv("AGENT_URL"); url != "" {
		config.Agent.URL = url
	}
	config.Agent.Streaming = utils.BoolFromEnv("AGENT_STREAMING", config.Agent.Streaming)

	// HTTP overrides
	if host := os.Getenv("HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if _, err := fmt.Sscanf(portStr, "%d", &config.HTTP.Port); err != nil {
			logrus.Warnf("Invalid HTTP_PORT: %s", portStr)
		}
	}

	// Provider credentials
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		config.Search.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		config.LLM.BaseURL = base
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.LLM.Model = model
	}

	config.Gateway.Enabled = utils.BoolFromEnv("GATEWAY_ENABLED", config.Gateway.Enabled)

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}
