package entity

import "github.com/google/uuid"

// ID prefixes make entity kinds recognizable in logs and tool output.
const (
	projectIDPrefix = "proj_"
	taskIDPrefix    = "task_"
	memoryIDPrefix  = "mem_"
)

// NewProjectID generates a fresh unique project id.
func NewProjectID() string { return projectIDPrefix + uuid.NewString() }

// NewTaskID generates a fresh unique task id.
func NewTaskID() string { return taskIDPrefix + uuid.NewString() }

// NewMemoryID generates a fresh unique memory id.
func NewMemoryID() string { return memoryIDPrefix + uuid.NewString() }
