// Package classify maps enumerated status, priority and type codes to the
// label, colour and icon used wherever they are displayed.
package classify

import (
	"sort"

	"bizdesk/internal/domain"
)

// Presentation is how a code is displayed.
type Presentation struct {
	Label string
	Color string
	Icon  string
}

// Unknown is returned for any code missing from a table.
var Unknown = Presentation{Label: "Unknown", Color: "default", Icon: "question"}

var taskStatuses = map[domain.TaskStatus]Presentation{
	domain.TaskNotStarted: {Label: "Not started", Color: "default", Icon: "clock"},
	domain.TaskInProgress: {Label: "In progress", Color: "processing", Icon: "sync"},
	domain.TaskCompleted:  {Label: "Completed", Color: "success", Icon: "check-circle"},
	domain.TaskDeferred:   {Label: "Deferred", Color: "warning", Icon: "pause-circle"},
	domain.TaskWaiting:    {Label: "Waiting", Color: "purple", Icon: "hourglass"},
}

var taskPriorities = map[domain.TaskPriority]Presentation{
	domain.PriorityLow:    {Label: "Low", Color: "green", Icon: "arrow-down"},
	domain.PriorityNormal: {Label: "Normal", Color: "blue", Icon: "minus"},
	domain.PriorityHigh:   {Label: "High", Color: "orange", Icon: "arrow-up"},
	domain.PriorityUrgent: {Label: "Urgent", Color: "red", Icon: "fire"},
}

var taskTypes = map[domain.TaskType]Presentation{
	domain.TaskTypeCall:    {Label: "Call", Color: "blue", Icon: "phone"},
	domain.TaskTypeMeeting: {Label: "Meeting", Color: "purple", Icon: "team"},
	domain.TaskTypeEmail:   {Label: "Email log", Color: "cyan", Icon: "mail"},
	domain.TaskTypeNote:    {Label: "Note", Color: "gold", Icon: "file-text"},
	domain.TaskTypeTodo:    {Label: "To-do", Color: "green", Icon: "check-square"},
}

var projectStatuses = map[domain.ProjectStatus]Presentation{
	domain.ProjectIdea:         {Label: "Idea", Color: "blue", Icon: "bulb"},
	domain.ProjectInProgress:   {Label: "In progress", Color: "processing", Icon: "sync"},
	domain.ProjectInProduction: {Label: "In production", Color: "success", Icon: "rocket"},
}

var blockageStatuses = map[domain.BlockageStatus]Presentation{
	domain.BlockageActive:     {Label: "Active", Color: "error", Icon: "stop"},
	domain.BlockageInProgress: {Label: "In progress", Color: "processing", Icon: "sync"},
	domain.BlockageResolved:   {Label: "Resolved", Color: "success", Icon: "check-circle"},
}

var blockagePriorities = map[domain.BlockagePriority]Presentation{
	domain.BlockageLow:      {Label: "Low", Color: "green", Icon: "arrow-down"},
	domain.BlockageMedium:   {Label: "Medium", Color: "blue", Icon: "minus"},
	domain.BlockageHigh:     {Label: "High", Color: "orange", Icon: "arrow-up"},
	domain.BlockageCritical: {Label: "Critical", Color: "red", Icon: "warning"},
}

func lookup[K comparable](table map[K]Presentation, code K) Presentation {
	if p, ok := table[code]; ok {
		return p
	}
	return Unknown
}

// TaskStatus presents a task status code.
func TaskStatus(s domain.TaskStatus) Presentation { return lookup(taskStatuses, s) }

// TaskPriority presents a task priority code.
func TaskPriority(p domain.TaskPriority) Presentation { return lookup(taskPriorities, p) }

// TaskType presents a task type code.
func TaskType(t domain.TaskType) Presentation { return lookup(taskTypes, t) }

// ProjectStatus presents a derived project status.
func ProjectStatus(s domain.ProjectStatus) Presentation { return lookup(projectStatuses, s) }

// BlockageStatus presents a blockage status code.
func BlockageStatus(s domain.BlockageStatus) Presentation { return lookup(blockageStatuses, s) }

// BlockagePriority presents a blockage priority code.
func BlockagePriority(p domain.BlockagePriority) Presentation {
	return lookup(blockagePriorities, p)
}

func keys[K ~string](table map[K]Presentation) []K {
	out := make([]K, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KnownTaskStatuses returns the task status codes with a presentation, sorted.
// The other Known functions do the same for their tables.
func KnownTaskStatuses() []domain.TaskStatus { return keys(taskStatuses) }

func KnownTaskPriorities() []domain.TaskPriority { return keys(taskPriorities) }

func KnownTaskTypes() []domain.TaskType { return keys(taskTypes) }

func KnownProjectStatuses() []domain.ProjectStatus { return keys(projectStatuses) }

func KnownBlockageStatuses() []domain.BlockageStatus { return keys(blockageStatuses) }

func KnownBlockagePriorities() []domain.BlockagePriority { return keys(blockagePriorities) }
