// Package server exposes the weather capability over the agent-to-agent
// HTTP protocol: a discovery card at the well-known path and task
// submission endpoints, with optional streaming.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/a2a"
	"github.com/nimbuslab/weatherbot/internal/api"
	"github.com/nimbuslab/weatherbot/internal/config"
	"github.com/nimbuslab/weatherbot/internal/weather"
)

// WeatherProvider is the capability behind the task endpoints. It is an
// interface so tests can count and stub invocations.
type WeatherProvider interface {
	Report(ctx context.Context, query string) (string, error)
	Stream(ctx context.Context, query string) <-chan weather.Update
}

// APIServer serves the discovery card and the task endpoints.
type APIServer struct {
	config      *config.AppConfig
	card        *a2a.AgentCard
	cardJSON    []byte
	provider    WeatherProvider
	taskManager *a2a.TaskManager
	gateway     *api.EventGateway
	httpServer  *http.Server
	router      *gin.Engine
	logger      *logrus.Logger
}

// NewAPIServer creates the API server. The agent card is built and
// marshalled once here; every discovery request serves the same bytes.
func NewAPIServer(cfg *config.AppConfig, provider WeatherProvider, taskManager *a2a.TaskManager, gateway *api.EventGateway, logger *logrus.Logger) (*APIServer, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	card := buildAgentCard(cfg)
	cardJSON, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agent card: %w", err)
	}

	server := &APIServer{
		config:      cfg,
		card:        card,
		cardJSON:    cardJSON,
		provider:    provider,
		taskManager: taskManager,
		gateway:     gateway,
		router:      router,
		logger:      logger,
	}

	server.registerRoutes()

	return server, nil
}

// buildAgentCard assembles the immutable discovery document.
func buildAgentCard(cfg *config.AppConfig) *a2a.AgentCard {
	url := cfg.Agent.URL
	if url == "" {
		url = fmt.Sprintf("http://%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	}

	return &a2a.AgentCard{
		Name:        cfg.Agent.Name,
		Description: cfg.Agent.Description,
		URL:         url,
		Version:     cfg.Agent.Version,
		Capabilities: a2a.AgentCapabilities{
			Streaming:         cfg.Agent.Streaming,
			PushNotifications: false,
		},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "get_weather",
				Name:        "Get Current Weather",
				Description: "Get real-time weather information including temperature, conditions, humidity, and wind for any location worldwide.",
				Tags:        []string{"weather", "temperature", "forecast", "conditions"},
				Examples: []string{
					"What's the weather like in New York?",
					"Current weather in London, UK",
					"Tell me about the weather in Tokyo",
				},
				InputModes:  []string{"text/plain"},
				OutputModes: []string{"text/plain"},
			},
		},
	}
}

// Router exposes the gin engine for tests.
func (s *APIServer) Router() http.Handler {
	return s.router
}

// Card returns the agent card served at the well-known path.
func (s *APIServer) Card() *a2a.AgentCard {
	return s.card
}

// Start starts the API server
func (s *APIServer) Start() error {
	s.logger.Infof("Starting HTTP server on %s:%d", s.config.HTTP.Host, s.config.HTTP.Port)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.HTTP.Host, s.config.HTTP.Port),
		Handler: s.router,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Shutdown stops the API server
func (s *APIServer) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// registerRoutes registers the API routes. Legacy mode serves the older
// well-known path and only the single-shot task endpoint; streaming mode
// adds the incremental endpoint.
func (s *APIServer) registerRoutes() {
	if s.config.Agent.Streaming {
		s.router.GET(a2a.WellKnownCardPath, s.getAgentCard)
		s.router.POST("/tasks/send", s.sendTask)
		s.router.POST("/tasks/stream", s.streamTask)
	} else {
		s.router.GET(a2a.WellKnownLegacyPath, s.getAgentCard)
		s.router.POST("/tasks/send", s.sendTaskLegacy)
	}

	s.router.GET("/tasks/:id", s.getTask)
	s.router.GET("/health", s.getHealth)

	if s.gateway != nil {
		s.router.GET("/ws/events", s.gateway.HandleConnection)
	}
}

// getAgentCard serves the pre-marshalled discovery document.
func (s *APIServer) getAgentCard(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", s.cardJSON)
}

func (s *APIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"tasks":     s.taskManager.TaskCount(),
	})
}

func (s *APIServer) getTask(c *gin.Context) {
	task, err := s.taskManager.GetTask(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// bindTask parses and validates a task submission. On failure it writes
// the 400-class response itself and returns false; providers must not be
// called in that case.
func (s *APIServer) bindTask(c *gin.Context) (a2a.TaskRequest, string, bool) {
	var req a2a.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task format"})
		return a2a.TaskRequest{}, "", false
	}

	query, err := a2a.TextFromMessage(req.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task message contains no text query"})
		return a2a.TaskRequest{}, "", false
	}

	return req, query, true
}

// sendTask handles the blocking task endpoint. Provider failures surface
// as a failed task status in a normally-transported response, not as a
// transport error.
func (s *APIServer) sendTask(c *gin.Context) {
	req, query, ok := s.bindTask(c)
	if !ok {
		return
	}

	s.taskManager.CreateTask(req)
	s.taskManager.UpdateTaskStatus(req.ID, a2a.TaskStateWorking, nil)
	s.logger.Infof("[TaskID: %s] Processing query: %q", req.ID, query)

	text, err := s.provider.Report(c.Request.Context(), query)
	if err != nil {
		s.logger.Errorf("[TaskID: %s] Provider failed: %v", req.ID, err)
		s.respondFailure(c, req.ID, err)
		return
	}

	s.completeTask(req.ID, text)

	c.JSON(http.StatusOK, a2a.TaskResponse{
		ID:     req.ID,
		Status: a2a.NewStatus(a2a.TaskStateCompleted),
		Parts:  []a2a.Part{a2a.NewTextPart(text)},
	})
}

// sendTaskLegacy handles the legacy envelope: the request message echoed
// back followed by the agent reply.
func (s *APIServer) sendTaskLegacy(c *gin.Context) {
	req, query, ok := s.bindTask(c)
	if !ok {
		return
	}

	s.taskManager.CreateTask(req)
	s.taskManager.UpdateTaskStatus(req.ID, a2a.TaskStateWorking, nil)
	s.logger.Infof("[TaskID: %s] Processing query: %q", req.ID, query)

	text, err := s.provider.Report(c.Request.Context(), query)
	if err != nil {
		s.logger.Errorf("[TaskID: %s] Provider failed: %v", req.ID, err)
		failText := fmt.Sprintf("I encountered an error getting weather data: %v", err)
		s.taskManager.UpdateTaskStatus(req.ID, a2a.TaskStateFailed, ptr(a2a.NewAgentMessage(failText)))

		c.JSON(http.StatusOK, a2a.LegacyTaskResponse{
			ID:       req.ID,
			Status:   a2a.NewStatus(a2a.TaskStateFailed),
			Messages: []a2a.Message{req.Message, a2a.NewAgentMessage(failText)},
		})
		return
	}

	s.completeTask(req.ID, text)

	c.JSON(http.StatusOK, a2a.LegacyTaskResponse{
		ID:       req.ID,
		Status:   a2a.NewStatus(a2a.TaskStateCompleted),
		Messages: []a2a.Message{req.Message, a2a.NewAgentMessage(text)},
	})
}

// respondFailure converts a provider error into a failed TaskResponse.
func (s *APIServer) respondFailure(c *gin.Context, taskID string, err error) {
	failText := fmt.Sprintf("I encountered an error getting weather data: %v", err)
	s.taskManager.UpdateTaskStatus(taskID, a2a.TaskStateFailed, ptr(a2a.NewAgentMessage(failText)))

	c.JSON(http.StatusOK, a2a.TaskResponse{
		ID:     taskID,
		Status: a2a.NewStatus(a2a.TaskStateFailed),
		Parts:  []a2a.Part{a2a.NewTextPart(failText)},
	})
}

// completeTask records the final state and the answer artifact.
func (s *APIServer) completeTask(taskID, text string) {
	s.taskManager.AddArtifactToTask(taskID, a2a.Artifact{
		ArtifactID:  taskID + "-report",
		Name:        "weather_report",
		Description: "Current weather information for the requested location.",
		Parts:       []a2a.Part{a2a.NewTextPart(text)},
	})
	s.taskManager.UpdateTaskStatus(taskID, a2a.TaskStateCompleted, ptr(a2a.NewAgentMessage(text)))
}

func ptr(msg a2a.Message) *a2a.Message {
	return &msg
}
