package a2a

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/bus"
)

// TaskManager keeps the server-side record of every submitted task. It is
// bookkeeping only: responses are computed per request, the registry exists
// so task status can be inspected and lifecycle events observed.
type TaskManager struct {
	tasks    map[string]*Task
	mu       sync.RWMutex
	eventBus *bus.EventBus
	logger   *logrus.Logger
}

// NewTaskManager creates a task manager. The event bus is optional; when
// nil no lifecycle events are published.
func NewTaskManager(eb *bus.EventBus, logger *logrus.Logger) *TaskManager {
	if logger == nil {
		logger = logrus.New()
	}

	return &TaskManager{
		tasks:    make(map[string]*Task),
		eventBus: eb,
		logger:   logger,
	}
}

// CreateTask records a new task in the submitted state under the caller's
// task ID. Reusing an ID overwrites the previous record; the protocol
// leaves duplicate IDs as the caller's responsibility.
func (tm *TaskManager) CreateTask(req TaskRequest) *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task := &Task{
		ID:      req.ID,
		Status:  NewStatus(TaskStateSubmitted),
		History: []Message{req.Message},
	}

	tm.tasks[req.ID] = task
	tm.logger.Infof("[TaskID: %s] Task created in 'submitted' state", req.ID)

	if tm.eventBus != nil {
		tm.eventBus.PublishAsync(bus.EventTaskCreated, map[string]interface{}{
			"taskId": req.ID,
			"state":  string(task.Status.State),
		})
	}

	return task
}

// GetTask returns a copy of the task record for the given ID.
func (tm *TaskManager) GetTask(id string) (Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, exists := tm.tasks[id]
	if !exists {
		return Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// UpdateTaskStatus transitions a task to a new state. An optional agent
// message is appended to the task history.
func (tm *TaskManager) UpdateTaskStatus(id string, state TaskState, agentMessage *Message) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, exists := tm.tasks[id]
	if !exists {
		tm.logger.Warnf("[TaskID: %s] Attempted to update non-existent task", id)
		return
	}

	oldState := task.Status.State
	task.Status = NewStatus(state)

	if agentMessage != nil {
		task.History = append(task.History, *agentMessage)
	}

	tm.logger.Infof("[TaskID: %s] Status updated from '%s' to '%s'", id, oldState, state)

	if tm.eventBus != nil {
		tm.eventBus.PublishAsync(bus.EventTaskStatusUpdate, map[string]interface{}{
			"taskId":   id,
			"oldState": string(oldState),
			"newState": string(state),
		})
	}
}

// AddArtifactToTask attaches a named output to a task record.
func (tm *TaskManager) AddArtifactToTask(id string, artifact Artifact) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, exists := tm.tasks[id]
	if !exists {
		tm.logger.Warnf("[TaskID: %s] Attempted to add artifact to non-existent task", id)
		return
	}

	task.Artifacts = append(task.Artifacts, artifact)
	tm.logger.Infof("[TaskID: %s] Artifact '%s' added", id, artifact.Name)

	if tm.eventBus != nil {
		tm.eventBus.PublishAsync(bus.EventArtifactAdded, map[string]interface{}{
			"taskId":   id,
			"artifact": artifact.Name,
		})
	}
}

// TaskCount returns the number of recorded tasks per state.
func (tm *TaskManager) TaskCount() map[TaskState]int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	counts := make(map[TaskState]int)
	for _, task := range tm.tasks {
		counts[task.Status.State]++
	}
	return counts
}
