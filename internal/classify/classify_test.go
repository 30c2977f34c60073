package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/classify"
	"bizdesk/internal/domain"
)

func TestTaskStatusLabelsAreDistinctAndKnown(t *testing.T) {
	seen := map[string]domain.TaskStatus{}
	for _, s := range domain.TaskStatuses {
		p := classify.TaskStatus(s)
		assert.NotEqual(t, classify.Unknown, p, "status %s", s)
		if prev, dup := seen[p.Label]; dup {
			t.Fatalf("label %q shared by %s and %s", p.Label, prev, s)
		}
		seen[p.Label] = s
	}
	require.Len(t, seen, 5)
}

func TestTablesCoverEveryEnumValue(t *testing.T) {
	assert.ElementsMatch(t, domain.TaskStatuses, classify.KnownTaskStatuses())
	assert.ElementsMatch(t, domain.TaskPriorities, classify.KnownTaskPriorities())
	assert.ElementsMatch(t, domain.TaskTypes, classify.KnownTaskTypes())
	assert.ElementsMatch(t, domain.ProjectStatuses, classify.KnownProjectStatuses())
	assert.ElementsMatch(t, domain.BlockageStatuses, classify.KnownBlockageStatuses())
	assert.ElementsMatch(t, domain.BlockagePriorities, classify.KnownBlockagePriorities())
}

func TestUnknownCodesGetDefaultPresentation(t *testing.T) {
	cases := []struct {
		name string
		got  classify.Presentation
	}{
		{"task status", classify.TaskStatus("archived")},
		{"empty task status", classify.TaskStatus("")},
		{"task priority", classify.TaskPriority("critical")},
		{"task type", classify.TaskType("sms")},
		{"project status", classify.ProjectStatus(domain.ProjectStatusUnset)},
		{"blockage status", classify.BlockageStatus("closed")},
		{"blockage priority", classify.BlockagePriority("urgent")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, classify.Unknown, tc.got)
		})
	}
}

func TestKnownCodesNeverUseDefaultColor(t *testing.T) {
	for _, p := range domain.TaskPriorities {
		assert.NotEqual(t, "default", classify.TaskPriority(p).Color, "priority %s", p)
	}
	for _, s := range domain.ProjectStatuses {
		assert.NotEqual(t, classify.Unknown.Label, classify.ProjectStatus(s).Label, "project status %s", s)
	}
}
