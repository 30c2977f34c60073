// Package pipeline derives progress information for a project from the
// ordered stages of its pipeline type.
package pipeline

import (
	"sort"

	"bizdesk/internal/domain"
)

// Sorted returns a copy of stages ordered by Order. Ties keep input order.
func Sorted(stages []domain.PipelineStage) []domain.PipelineStage {
	out := make([]domain.PipelineStage, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// CurrentIndex returns the zero-based position of ref among the sorted
// stages. A nil or unknown ref yields 0.
func CurrentIndex(stages []domain.PipelineStage, ref *int64) int {
	if ref == nil {
		return 0
	}
	for i, s := range Sorted(stages) {
		if s.ID == *ref {
			return i
		}
	}
	return 0
}

// ContainsStage reports whether id is one of the stages.
func ContainsStage(stages []domain.PipelineStage, id int64) bool {
	for _, s := range stages {
		if s.ID == id {
			return true
		}
	}
	return false
}

// View is what a progress indicator needs.
type View struct {
	Stages  []domain.PipelineStage
	Current int
	// Percent of the pipeline reached, counting the current stage as done.
	Percent int
}

// Progress sorts stages and locates ref among them. A missing or unknown ref
// counts as the first stage.
func Progress(stages []domain.PipelineStage, ref *int64) View {
	sorted := Sorted(stages)
	v := View{Stages: sorted, Current: CurrentIndex(sorted, ref)}
	if len(sorted) > 0 {
		v.Percent = (v.Current + 1) * 100 / len(sorted)
	}
	return v
}

// Next returns the stage after the current one, if any.
func Next(stages []domain.PipelineStage, ref *int64) (domain.PipelineStage, bool) {
	sorted := Sorted(stages)
	i := CurrentIndex(sorted, ref)
	if i+1 >= len(sorted) {
		return domain.PipelineStage{}, false
	}
	return sorted[i+1], true
}
