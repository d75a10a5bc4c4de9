package datamodels

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	RunStarted    EventKind = "run_started"
	RunSucceeded  EventKind = "run_succeeded"
	RunFailed     EventKind = "run_failed"
	TaskStarted   EventKind = "task_started"
	TaskSucceeded EventKind = "task_succeeded"
	TaskSkipped   EventKind = "task_skipped"
	TaskFailed    EventKind = "task_failed"
)

// Event is one state transition of a deployment run on one host.
type Event struct {
	RunID uuid.UUID `json:"run_id"`
	Host  string    `json:"host"`
	Task  string    `json:"task,omitempty"`
	Kind  EventKind `json:"kind"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

type TaskStatus string

const (
	StatusSucceeded TaskStatus = "succeeded"
	StatusSkipped   TaskStatus = "skipped"
	StatusFailed    TaskStatus = "failed"
)

type TaskResult struct {
	Name       string     `json:"name"`
	Status     TaskStatus `json:"status"`
	DurationMS int64      `json:"duration_ms"`
	Error      string     `json:"error,omitempty"`
}

type HostReport struct {
	Host    string       `json:"host"`
	Branch  string       `json:"branch"`
	Release string       `json:"release"`
	Success bool         `json:"success"`
	Tasks   []TaskResult `json:"tasks"`
}

type RunReport struct {
	RunID    uuid.UUID    `json:"run_id"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Success  bool         `json:"success"`
	Hosts    []HostReport `json:"hosts"`
}
