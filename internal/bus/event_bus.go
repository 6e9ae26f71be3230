// Package bus provides the in-process event bus that carries task lifecycle
// and log events to observability subscribers such as the websocket gateway.
package bus

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type EventType string

const (
	EventTaskCreated      EventType = "taskCreated"
	EventTaskStatusUpdate EventType = "taskStatusUpdate"
	EventArtifactAdded    EventType = "artifactAdded"
	EventLogEntry         EventType = "logEntry"
)

type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

type EventHandler func(event Event)

// EventBus fans events out to registered handlers. Delivery is asynchronous
// and best-effort: when the internal channel is full the event is dropped
// rather than blocking the publisher.
type EventBus struct {
	mu         sync.RWMutex
	handlers   map[EventType][]EventHandler
	logger     *logrus.Logger
	dropLogger *logrus.Logger
	eventChan  chan Event
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewEventBus(logger *logrus.Logger) *EventBus {
	// Drop reports bypass the caller's log hooks: a hook that republishes
	// log entries onto this bus would otherwise loop forever once the
	// channel is full.
	dropLogger := logrus.New()
	dropLogger.SetOutput(logger.Out)
	dropLogger.SetFormatter(logger.Formatter)
	dropLogger.SetLevel(logger.GetLevel())

	eb := &EventBus{
		handlers:   make(map[EventType][]EventHandler),
		logger:     logger,
		dropLogger: dropLogger,
		eventChan:  make(chan Event, 100),
		stopChan:   make(chan struct{}),
	}

	go eb.processEvents()

	return eb
}

func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debugf("Handler subscribed to event type: %s", eventType)
}

// SubscribeAll registers a handler for every known event type.
func (eb *EventBus) SubscribeAll(handler EventHandler) {
	for _, eventType := range []EventType{
		EventTaskCreated,
		EventTaskStatusUpdate,
		EventArtifactAdded,
		EventLogEntry,
	} {
		eb.Subscribe(eventType, handler)
	}
}

func (eb *EventBus) Publish(event Event) {
	select {
	case eb.eventChan <- event:
	default:
		eb.dropLogger.Warnf("Event channel full, dropping event: %s", event.Type)
	}
}

// PublishAsync is a convenience wrapper building the Event in place.
func (eb *EventBus) PublishAsync(eventType EventType, payload map[string]interface{}) {
	eb.Publish(Event{Type: eventType, Payload: payload})
}

func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() {
		close(eb.stopChan)
	})
}

func (eb *EventBus) processEvents() {
	for {
		select {
		case event := <-eb.eventChan:
			eb.dispatch(event)
		case <-eb.stopChan:
			return
		}
	}
}

func (eb *EventBus) dispatch(event Event) {
	eb.mu.RLock()
	handlers := make([]EventHandler, len(eb.handlers[event.Type]))
	copy(handlers, eb.handlers[event.Type])
	eb.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
