package domain_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/domain"
)

func TestProjectStatusFromFlags(t *testing.T) {
	cases := []struct {
		idea, progress, production bool
		want                       domain.ProjectStatus
		wantErr                    bool
	}{
		{false, false, false, domain.ProjectStatusUnset, false},
		{true, false, false, domain.ProjectIdea, false},
		{false, true, false, domain.ProjectInProgress, false},
		{false, false, true, domain.ProjectInProduction, false},
		{true, true, false, domain.ProjectStatusUnset, true},
		{true, true, true, domain.ProjectStatusUnset, true},
	}
	for _, tc := range cases {
		got, err := domain.ProjectStatusFromFlags(tc.idea, tc.progress, tc.production)
		if tc.wantErr {
			assert.ErrorIs(t, err, domain.ErrAmbiguousProjectStatus)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestProjectJSONUsesFlags(t *testing.T) {
	p := domain.Project{ID: 9, Title: "Solar farm", Status: domain.ProjectInProduction, PipelineStageID: domain.Ptr[int64](3)}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, false, raw["is_idea"])
	assert.Equal(t, true, raw["is_in_production"])
	assert.NotContains(t, raw, "Status")

	var back domain.Project
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, domain.ProjectInProduction, back.Status)
	assert.Equal(t, int64(3), *back.PipelineStageID)
}

func TestProjectJSONRejectsTwoFlags(t *testing.T) {
	var p domain.Project
	err := json.Unmarshal([]byte(`{"id":5,"is_idea":true,"is_in_progress":true}`), &p)
	assert.True(t, errors.Is(err, domain.ErrAmbiguousProjectStatus))
}

func TestWallTimeIgnoresLocalZone(t *testing.T) {
	old := time.Local
	time.Local = time.FixedZone("UTC+3", 3*3600)
	defer func() { time.Local = old }()

	w, err := domain.ParseWallTime("2024-06-01T09:00:00")
	require.NoError(t, err)
	assert.Equal(t, 9, w.Time().Hour())
	assert.Equal(t, "2024-06-01T09:00:00", w.String())
}

func TestWallTimeLayouts(t *testing.T) {
	for in, want := range map[string]string{
		"2024-06-01 09:30:00":       "2024-06-01T09:30:00",
		"2024-06-01T09:30":          "2024-06-01T09:30:00",
		"2024-06-01":                "2024-06-01T00:00:00",
		"2024-06-01T09:30:00Z":      "2024-06-01T09:30:00",
		"2024-06-01T11:30:00+02:00": "2024-06-01T09:30:00",
	} {
		w, err := domain.ParseWallTime(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, w.String(), in)
	}
	_, err := domain.ParseWallTime("yesterday")
	assert.Error(t, err)
}

func TestWallTimeJSONNull(t *testing.T) {
	var task domain.Task
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"start_date":"2024-06-01 09:00:00","end_date":null}`), &task))
	assert.True(t, task.End.IsZero())
	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"end_date":null`)
	assert.Contains(t, string(data), `"start_date":"2024-06-01T09:00:00"`)
}
