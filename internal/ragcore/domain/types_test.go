package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFilterSpec(t *testing.T) {
	tests := []struct {
		name             string
		courseID         string
		courseMaterialID string
		wantKind         FilterKind
		wantTieBreak     bool
	}{
		{"neither supplied", "", "", FilterNone, false},
		{"course only", "course-1", "", FilterByCourse, false},
		{"material only", "", "material-1", FilterByMaterial, false},
		{"both supplied, course wins", "course-1", "material-1", FilterByCourse, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, tieBreak := NewFilterSpec(tt.courseID, tt.courseMaterialID)
			assert.Equal(t, tt.wantKind, spec.Kind)
			assert.Equal(t, tt.wantTieBreak, tieBreak)
			if tt.wantKind == FilterByCourse {
				assert.Equal(t, tt.courseID, spec.CourseID)
			}
			if tt.wantKind == FilterByMaterial {
				assert.Equal(t, tt.courseMaterialID, spec.CourseMaterialID)
			}
		})
	}
}

func TestFilterSpec_Describe(t *testing.T) {
	none := FilterSpec{Kind: FilterNone}
	assert.Contains(t, none.Describe(false), "无过滤条件")

	byCourse := FilterSpec{Kind: FilterByCourse, CourseID: "c1"}
	assert.Equal(t, "course_id = c1", byCourse.Describe(false))
	assert.Contains(t, byCourse.Describe(true), "c1")
	assert.Contains(t, byCourse.Describe(true), "优先使用")

	byMaterial := FilterSpec{Kind: FilterByMaterial, CourseMaterialID: "m1"}
	assert.Equal(t, "course_material_id = m1", byMaterial.Describe(false))
}

func TestGenFailedAnswer(t *testing.T) {
	got := GenFailedAnswer("timeout")
	assert.Contains(t, got, "timeout")
}
