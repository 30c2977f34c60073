package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bizdesk/internal/domain"
	"bizdesk/internal/pipeline"
)

func stages() []domain.PipelineStage {
	return []domain.PipelineStage{
		{ID: 30, Name: "Negotiation", Order: 3},
		{ID: 10, Name: "Lead", Order: 1},
		{ID: 20, Name: "Qualified", Order: 2},
	}
}

func TestCurrentIndexSortsByOrder(t *testing.T) {
	assert.Equal(t, 0, pipeline.CurrentIndex(stages(), domain.Ptr[int64](10)))
	assert.Equal(t, 1, pipeline.CurrentIndex(stages(), domain.Ptr[int64](20)))
	assert.Equal(t, 2, pipeline.CurrentIndex(stages(), domain.Ptr[int64](30)))
}

func TestCurrentIndexFallsBackToZero(t *testing.T) {
	assert.Equal(t, 0, pipeline.CurrentIndex(stages(), nil))
	assert.Equal(t, 0, pipeline.CurrentIndex(stages(), domain.Ptr[int64](99)))
	assert.Equal(t, 0, pipeline.CurrentIndex(nil, domain.Ptr[int64](10)))
}

func TestSortedLeavesInputUntouched(t *testing.T) {
	in := stages()
	out := pipeline.Sorted(in)
	assert.Equal(t, int64(30), in[0].ID)
	assert.Equal(t, []int64{10, 20, 30}, []int64{out[0].ID, out[1].ID, out[2].ID})
}

func TestProgress(t *testing.T) {
	v := pipeline.Progress(stages(), domain.Ptr[int64](20))
	assert.Equal(t, 1, v.Current)
	assert.Equal(t, 66, v.Percent)
	assert.Equal(t, "Lead", v.Stages[0].Name)

	empty := pipeline.Progress(nil, nil)
	assert.Equal(t, 0, empty.Percent)
}

func TestNext(t *testing.T) {
	next, ok := pipeline.Next(stages(), domain.Ptr[int64](10))
	assert.True(t, ok)
	assert.Equal(t, int64(20), next.ID)

	_, ok = pipeline.Next(stages(), domain.Ptr[int64](30))
	assert.False(t, ok)
}

func TestContainsStage(t *testing.T) {
	assert.True(t, pipeline.ContainsStage(stages(), 20))
	assert.False(t, pipeline.ContainsStage(stages(), 40))
}
