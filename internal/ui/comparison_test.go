package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teachdash/internal/api"
)

func TestCompareRows_UnionNewestFirst(t *testing.T) {
	a := []api.MonthlyReport{
		{Year: 2024, Month: 1, VideoViews: intPtr(10)},
		{Year: 2023, Month: 12, VideoViews: intPtr(5)},
	}
	b := []api.MonthlyReport{
		{Year: 2024, Month: 2, QualityScore: floatPtr(7)},
		{Year: 2024, Month: 1, QualityScore: floatPtr(9)},
	}
	rows := compareRows(a, b)
	require.Len(t, rows, 3)

	assert.Equal(t, api.Period{Year: 2024, Month: 2}, rows[0].Period)
	assert.Nil(t, rows[0].A)
	assert.NotNil(t, rows[0].B)

	assert.Equal(t, api.Period{Year: 2024, Month: 1}, rows[1].Period)
	assert.Equal(t, 10, *rows[1].A.VideoViews)
	assert.Equal(t, 9.0, *rows[1].B.QualityScore)

	assert.Equal(t, api.Period{Year: 2023, Month: 12}, rows[2].Period)
	assert.Nil(t, rows[2].B)
}

func TestCompareRows_Empty(t *testing.T) {
	assert.Empty(t, compareRows(nil, nil))
	assert.Contains(t, renderComparison("A", "B", nil), "Neither teacher")
}

func TestRenderComparison_MissingSideIsNA(t *testing.T) {
	rows := compareRows([]api.MonthlyReport{{Year: 2024, Month: 1, VideoViews: intPtr(42)}}, nil)
	out := renderComparison("Ada Lovelace", "Grace Hopper", rows)
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "42")
	assert.GreaterOrEqual(t, strings.Count(out, notAvailable), 4)
}

func TestComparisonView_FetchesEachSide(t *testing.T) {
	fb := &fakeBackend{
		teachers: testTeachers(),
		reportsFn: func(id int) ([]api.MonthlyReport, error) {
			return []api.MonthlyReport{{Year: 2024, Month: 3, VideoViews: intPtr(id * 100)}}, nil
		},
	}
	c := NewComparisonView(testEnv(t, fb))
	c.Update(TeachersLoadedMsg{Teachers: fb.teachers})

	c.Picker(fieldTeacherA).Value = "1"
	_, cmd := c.Update(teacherChosenMsg{Field: fieldTeacherA})
	pump(t, c, cmd)
	c.Picker(fieldTeacherB).Value = "2"
	_, cmd = c.Update(teacherChosenMsg{Field: fieldTeacherB})
	pump(t, c, cmd)

	require.Len(t, c.Reports(fieldTeacherA), 1)
	require.Len(t, c.Reports(fieldTeacherB), 1)
	out := c.View()
	assert.Contains(t, out, "100")
	assert.Contains(t, out, "200")
}

func TestComparisonView_DropsStaleReply(t *testing.T) {
	fb := &fakeBackend{teachers: testTeachers()}
	c := NewComparisonView(testEnv(t, fb))
	c.Update(TeachersLoadedMsg{Teachers: fb.teachers})

	c.Picker(fieldTeacherA).Value = "1"
	c.Update(teacherChosenMsg{Field: fieldTeacherA})
	c.Picker(fieldTeacherA).Value = "2"
	c.Update(teacherChosenMsg{Field: fieldTeacherA})

	c.Update(reportsLoadedMsg{Side: fieldTeacherA, TeacherID: 1, Reports: []api.MonthlyReport{{Year: 2024, Month: 1}}})
	assert.Empty(t, c.Reports(fieldTeacherA))

	c.Update(reportsLoadedMsg{Side: fieldTeacherA, TeacherID: 2, Reports: []api.MonthlyReport{{Year: 2024, Month: 2}}})
	assert.Len(t, c.Reports(fieldTeacherA), 1)
}

func TestComparisonView_TabMovesFocus(t *testing.T) {
	c := NewComparisonView(testEnv(t, &fakeBackend{}))
	assert.True(t, c.Picker(fieldTeacherA).Focused())
	c.Update(keyMsg("tab"))
	assert.False(t, c.Picker(fieldTeacherA).Focused())
	assert.True(t, c.Picker(fieldTeacherB).Focused())
}

func TestComparisonView_ClickOpensOtherSideAndMovesFocus(t *testing.T) {
	fb := &fakeBackend{teachers: testTeachers()}
	c := NewComparisonView(testEnv(t, fb))
	c.Update(TeachersLoadedMsg{Teachers: fb.teachers})
	c.View()

	b := c.Picker(fieldTeacherB).Bounds()
	c.Update(tea.MouseMsg{X: b.X + 1, Y: b.Y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	assert.True(t, c.Picker(fieldTeacherB).IsOpen())
	assert.True(t, c.Picker(fieldTeacherB).Focused())
	assert.False(t, c.Picker(fieldTeacherA).Focused())
	assert.Equal(t, fieldTeacherB, c.focus.Current)
	assert.True(t, c.CapturesInput())
}
