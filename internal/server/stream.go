package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbuslab/weatherbot/internal/a2a"
	"github.com/nimbuslab/weatherbot/internal/weather"
)

// streamTask handles the incremental task endpoint. Validation failures
// are answered before the stream opens; once open, every provider update
// becomes one SSE chunk, flushed before the next is read, and the stream
// ends with exactly one chunk flagged final.
func (s *APIServer) streamTask(c *gin.Context) {
	req, query, ok := s.bindTask(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	s.taskManager.CreateTask(req)
	s.taskManager.UpdateTaskStatus(req.ID, a2a.TaskStateWorking, nil)
	s.logger.Infof("[TaskID: %s] Streaming query: %q", req.ID, query)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	ctx := c.Request.Context()

	for update := range s.provider.Stream(ctx, query) {
		chunk := s.chunkFromUpdate(req.ID, update)

		if err := writeSSEChunk(c, flusher, chunk); err != nil {
			// Client went away; the provider observes the cancelled
			// context and winds down on its own.
			s.logger.Warnf("[TaskID: %s] Stream write failed: %v", req.ID, err)
			return
		}

		if chunk.Final {
			return
		}
	}
}

// chunkFromUpdate maps a provider update onto the wire chunk format and
// records terminal transitions in the task registry.
func (s *APIServer) chunkFromUpdate(taskID string, update weather.Update) a2a.TaskChunk {
	switch {
	case update.Kind == weather.UpdateResult && update.Err != nil:
		failText := fmt.Sprintf("I encountered an error getting weather data: %v", update.Err)
		s.taskManager.UpdateTaskStatus(taskID, a2a.TaskStateFailed, ptr(a2a.NewAgentMessage(failText)))
		return a2a.TaskChunk{
			ID:     taskID,
			Status: a2a.NewStatus(a2a.TaskStateFailed),
			Parts:  []a2a.Part{a2a.NewTextPart(failText)},
			Final:  true,
		}
	case update.Kind == weather.UpdateResult:
		s.completeTask(taskID, update.Text)
		return a2a.TaskChunk{
			ID:     taskID,
			Status: a2a.NewStatus(a2a.TaskStateCompleted),
			Parts:  []a2a.Part{a2a.NewTextPart(update.Text)},
			Final:  true,
		}
	default:
		return a2a.TaskChunk{
			ID:     taskID,
			Status: a2a.NewStatus(a2a.TaskStateWorking),
			Parts:  []a2a.Part{a2a.NewTextPart(update.Text)},
			Final:  false,
		}
	}
}

// writeSSEChunk writes one chunk as a server-sent event and flushes it.
func writeSSEChunk(c *gin.Context, flusher http.Flusher, chunk a2a.TaskChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}

	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
