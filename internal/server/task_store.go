package server

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// TaskStatus is the lifecycle state of a stored task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task records one query handled by the server: what was asked, where, how
// it ended, and when. The audit trail on disk holds the step detail; this is
// the in-memory index over it.
type Task struct {
	ID          string     `json:"id"`
	Query       string     `json:"query"`
	RepoPath    string     `json:"repo_path"`
	Status      TaskStatus `json:"status"`
	Answer      string     `json:"answer,omitempty"`
	Error       string     `json:"error,omitempty"`
	Cached      bool       `json:"cached,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Finished reports whether the task reached a terminal state.
func (t Task) Finished() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

const defaultMaxTasks = 512

// TaskStore is an in-memory task index. Finished tasks beyond the capacity
// are evicted oldest-first; running tasks are never evicted.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*Task
	maxTasks int
}

// NewTaskStore creates a store holding at most maxTasks finished tasks.
func NewTaskStore(maxTasks int) *TaskStore {
	if maxTasks <= 0 {
		maxTasks = defaultMaxTasks
	}
	return &TaskStore{
		tasks:    make(map[string]*Task),
		maxTasks: maxTasks,
	}
}

// Create registers a new pending task.
func (s *TaskStore) Create(taskID, query, repoPath string) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &Task{
		ID:        taskID,
		Query:     query,
		RepoPath:  repoPath,
		Status:    TaskStatusPending,
		CreatedAt: time.Now(),
	}
	s.tasks[taskID] = task
	s.evictLocked()
	return *task
}

// Get retrieves a task by ID.
func (s *TaskStore) Get(taskID string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("task not found: %s", taskID)
	}
	return *task, nil
}

// List returns tasks newest-first with pagination, plus the total count.
func (s *TaskStore) List(limit, offset int) ([]Task, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, *task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	total := len(tasks)
	if offset >= total {
		return []Task{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return tasks[offset:end], total
}

// SetRunning marks a task as started.
func (s *TaskStore) SetRunning(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("task not found: %s", taskID)
	}
	task.Status = TaskStatusRunning
	if task.StartedAt == nil {
		now := time.Now()
		task.StartedAt = &now
	}
	return nil
}

// SetCompleted stores the final answer.
func (s *TaskStore) SetCompleted(taskID, answer string, cached bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("task not found: %s", taskID)
	}
	task.Status = TaskStatusCompleted
	task.Answer = answer
	task.Cached = cached
	now := time.Now()
	task.CompletedAt = &now
	return nil
}

// SetFailed records a task that ended in a diagnostic instead of an answer.
func (s *TaskStore) SetFailed(taskID, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return fmt.Errorf("task not found: %s", taskID)
	}
	task.Status = TaskStatusFailed
	task.Error = errText
	now := time.Now()
	task.CompletedAt = &now
	return nil
}

// evictLocked drops the oldest finished tasks until the store fits its
// capacity. Callers hold the write lock.
func (s *TaskStore) evictLocked() {
	if len(s.tasks) <= s.maxTasks {
		return
	}

	finished := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if task.Finished() {
			finished = append(finished, task)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})

	for _, task := range finished {
		if len(s.tasks) <= s.maxTasks {
			return
		}
		delete(s.tasks, task.ID)
	}
}
