package domain

import (
	"context"
	"time"
)

// RunCause описывает источник запроса на запуск конвейера.
type RunCause string

const (
	// RunCauseManual — запуск по запросу через API.
	RunCauseManual RunCause = "manual"
	// RunCauseScheduled — запуск по расписанию.
	RunCauseScheduled RunCause = "scheduled"
	// RunCauseCustom — разовый запуск с пользовательскими параметрами.
	RunCauseCustom RunCause = "custom"
)

// Виды запусков; вид входит в идентификатор запуска.
const (
	RunKindDaily  = "daily"
	RunKindCustom = "custom"
	RunKindTrends = "trends"
)

// WorkflowJob — задача на выполнение одного запуска конвейера.
type WorkflowJob struct {
	ID          string    `json:"job_id"`
	Config      RunConfig `json:"config"`
	Cause       RunCause  `json:"cause"`
	RequestedAt time.Time `json:"requested_at"`
	RunAt       time.Time `json:"run_at,omitempty"`
}

// WorkflowQueue — очередь задач на запуск конвейера.
type WorkflowQueue interface {
	Enqueue(ctx context.Context, job WorkflowJob) error
	// Pop блокирующе читает следующую задачу.
	Pop(ctx context.Context) (WorkflowJob, error)
}
