// Package logger contains logrus hooks.
package logger

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/bus"
)

// BusHook republishes log entries onto the event bus so gateway clients
// see them alongside task lifecycle events.
type BusHook struct {
	eventBus  *bus.EventBus
	agentName string
}

// NewBusHook creates a hook bound to the given bus.
func NewBusHook(eventBus *bus.EventBus, agentName string) *BusHook {
	return &BusHook{
		eventBus:  eventBus,
		agentName: agentName,
	}
}

// Levels returns the log levels this hook is interested in. Debug and
// trace stay out of the feed; the bus itself logs at debug level and
// forwarding those would echo.
func (h *BusHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

// Fire is called when a log event occurs
func (h *BusHook) Fire(entry *logrus.Entry) error {
	if h.eventBus == nil {
		return nil
	}

	message := entry.Message

	var fieldParts []string
	for key, value := range entry.Data {
		fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", key, value))
	}
	if len(fieldParts) > 0 {
		message = fmt.Sprintf("%s [%s]", message, strings.Join(fieldParts, ", "))
	}

	h.eventBus.PublishAsync(bus.EventLogEntry, map[string]interface{}{
		"level":     entry.Level.String(),
		"message":   message,
		"source":    h.agentName,
		"timestamp": entry.Time.Format(time.RFC3339),
	})

	return nil
}
