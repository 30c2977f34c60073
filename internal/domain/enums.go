package domain

type TaskType string

const (
	TaskTypeCall    TaskType = "call"
	TaskTypeMeeting TaskType = "meeting"
	TaskTypeEmail   TaskType = "email"
	TaskTypeNote    TaskType = "note"
	TaskTypeTodo    TaskType = "todo"
)

var TaskTypes = []TaskType{TaskTypeCall, TaskTypeMeeting, TaskTypeEmail, TaskTypeNote, TaskTypeTodo}

func (t TaskType) Valid() bool { return contains(TaskTypes, t) }

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskDeferred   TaskStatus = "deferred"
	TaskWaiting    TaskStatus = "waiting"
)

var TaskStatuses = []TaskStatus{TaskNotStarted, TaskInProgress, TaskCompleted, TaskDeferred, TaskWaiting}

func (s TaskStatus) Valid() bool { return contains(TaskStatuses, s) }

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

var TaskPriorities = []TaskPriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

func (p TaskPriority) Valid() bool { return contains(TaskPriorities, p) }

type BlockageStatus string

const (
	BlockageActive     BlockageStatus = "active"
	BlockageInProgress BlockageStatus = "in_progress"
	BlockageResolved   BlockageStatus = "resolved"
)

var BlockageStatuses = []BlockageStatus{BlockageActive, BlockageInProgress, BlockageResolved}

func (s BlockageStatus) Valid() bool { return contains(BlockageStatuses, s) }

type BlockagePriority string

const (
	BlockageLow      BlockagePriority = "low"
	BlockageMedium   BlockagePriority = "medium"
	BlockageHigh     BlockagePriority = "high"
	BlockageCritical BlockagePriority = "critical"
)

var BlockagePriorities = []BlockagePriority{BlockageLow, BlockageMedium, BlockageHigh, BlockageCritical}

func (p BlockagePriority) Valid() bool { return contains(BlockagePriorities, p) }

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
