package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/a2a"
	"github.com/nimbuslab/weatherbot/internal/api"
	"github.com/nimbuslab/weatherbot/internal/bus"
	"github.com/nimbuslab/weatherbot/internal/config"
	"github.com/nimbuslab/weatherbot/internal/llm"
	"github.com/nimbuslab/weatherbot/internal/logger"
	"github.com/nimbuslab/weatherbot/internal/search"
	"github.com/nimbuslab/weatherbot/internal/server"
	"github.com/nimbuslab/weatherbot/internal/weather"
	"github.com/nimbuslab/weatherbot/pkg/utils"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Load .env before anything reads the environment
	config.LoadDotEnv()

	// Bootstrap logger for config loading; rebuilt from config below
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	log.Info("Starting WeatherBot agent...")

	// Load configuration
	log.Infof("Loading configuration from %s", *configPath)
	appConfig, err := config.LoadConfig(*configPath, log)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Rebuild the logger from the logging config. The -log-level flag
	// wins over both the file and the LOG_LEVEL override.
	if *logLevel != "" {
		appConfig.Logging.Level = *logLevel
	}
	log = utils.ConfigureLogger(appConfig.Logging)

	// The external providers are useless without credentials
	missing := []string{}
	if appConfig.Search.APIKey == "" {
		missing = append(missing, "TAVILY_API_KEY")
	}
	if appConfig.LLM.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		log.Fatalf("Missing required environment variables: %v", missing)
	}

	// Event bus and lifecycle feed
	eventBus := bus.NewEventBus(log)
	defer eventBus.Stop()

	var gateway *api.EventGateway
	if appConfig.Gateway.Enabled {
		gateway = api.NewEventGateway(eventBus, log)
		log.AddHook(logger.NewBusHook(eventBus, appConfig.Agent.Name))
		log.Info("Event gateway enabled at /ws/events")
	}

	// Wire the capability provider
	searcher := search.NewTavilyClient(search.TavilyConfig{
		APIKey:     appConfig.Search.APIKey,
		BaseURL:    appConfig.Search.BaseURL,
		MaxResults: appConfig.Search.MaxResults,
		Timeout:    appConfig.Search.Timeout,
	}, log)

	summarizer := llm.NewClient(llm.Config{
		APIKey:      appConfig.LLM.APIKey,
		BaseURL:     appConfig.LLM.BaseURL,
		Model:       appConfig.LLM.Model,
		MaxTokens:   appConfig.LLM.MaxTokens,
		Temperature: appConfig.LLM.Temperature,
	}, log)

	provider := weather.NewProvider(searcher, summarizer, log)
	taskManager := a2a.NewTaskManager(eventBus, log)

	// Create and start the API server
	apiServer, err := server.NewAPIServer(appConfig, provider, taskManager, gateway, log)
	if err != nil {
		log.Fatalf("Failed to create API server: %v", err)
	}

	if err := apiServer.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	mode := "streaming"
	if !appConfig.Agent.Streaming {
		mode = "legacy"
	}
	log.Infof("WeatherBot running in %s mode on http://%s:%d. Press Ctrl+C to stop.",
		mode, appConfig.HTTP.Host, appConfig.HTTP.Port)

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")
	if err := apiServer.Shutdown(); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}

	log.Info("WeatherBot stopped")
}
