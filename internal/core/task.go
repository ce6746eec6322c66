package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// TaskStatuses lists the statuses in the order the status buttons show them.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskPending, TaskInProgress, TaskDone}
}

// ParseTaskStatus rejects anything outside the enumeration.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(strings.TrimSpace(s)); st {
	case TaskPending, TaskInProgress, TaskDone:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

type Task struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	AssigneeEmail string     `json:"assignee_email"`
	Status        TaskStatus `json:"status"`
}

func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	if err := json.Unmarshal(data, (*alias)(t)); err != nil {
		return err
	}
	return fallbackID(data, &t.ID)
}

// NewTask is the body of POST /tasks.
type NewTask struct {
	Title         string `json:"title" validate:"required"`
	Description   string `json:"description"`
	AssigneeEmail string `json:"assignee_email" validate:"required"`
}

func (n NewTask) Validate() error {
	return validateStruct(n)
}

// TaskStatusChange is the body of PATCH /tasks/{id}.
type TaskStatusChange struct {
	Status TaskStatus `json:"status" validate:"required,oneof=pending in_progress done"`
}

func (c TaskStatusChange) Validate() error {
	return validateStruct(c)
}
