package reportgen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"reportcard-crm/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceSummaryRate(t *testing.T) {
	tests := []struct {
		name    string
		summary AttendanceSummary
		want    float64
	}{
		{"без записей", AttendanceSummary{}, 100},
		{"полное присутствие", AttendanceSummary{Present: 20}, 100},
		{"опоздания считаются присутствием", AttendanceSummary{Present: 8, Late: 2}, 100},
		{"половина пропусков", AttendanceSummary{Present: 5, Absent: 5}, 50},
		{"уважительные пропуски снижают долю", AttendanceSummary{Present: 3, Excused: 1}, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.summary.Rate(), 0.001)
		})
	}
}

func TestAverageScore(t *testing.T) {
	score := func(v float64) *float64 { return &v }

	report := &StudentReport{Grades: []models.Grade{
		{Score: score(80)},
		{Score: score(90)},
		{Score: nil}, // оценка без балла не входит в среднее
	}}
	avg, ok := report.AverageScore()
	require.True(t, ok)
	assert.InDelta(t, 85, avg, 0.001)

	empty := &StudentReport{}
	_, ok = empty.AverageScore()
	assert.False(t, ok)
}

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		hex     string
		r, g, b int
	}{
		{"#FFFFFF", 255, 255, 255},
		{"#1e40af", 30, 64, 175},
		{"000000", 0, 0, 0},
		{"мусор", 0, 0, 0},
		{"", 0, 0, 0},
		{"#FFF", 0, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := hexToRGB(tt.hex)
		assert.Equal(t, []int{tt.r, tt.g, tt.b}, []int{r, g, b}, "hex %q", tt.hex)
	}
}

func TestVariables(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	report := &StudentReport{
		Grades:     []models.Grade{{Score: score(70)}, {Score: score(90)}},
		Attendance: AttendanceSummary{Present: 9, Absent: 1},
	}

	vars := report.Variables()
	assert.InDelta(t, 80, vars["avg_score"].(float64), 0.001)
	assert.InDelta(t, 90, vars["attendance_pct"].(float64), 0.001)
	assert.Equal(t, 2, vars["grades_count"])
	assert.Equal(t, 1, vars["absences"])
}

func TestBuilderWritesPDF(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	yes := true

	tpl := &models.ReportTemplate{
		Name:                     "Тестовый шаблон",
		ReportTitle:              "Табель успеваемости",
		HeaderBackgroundColor:    "#1e40af",
		HeaderTextColor:          "#ffffff",
		PrimaryColor:             "#2563eb",
		IncludeAttendanceSummary: &yes,
		IncludeTeacherComments:   &yes,
		Fields: []models.TemplateField{
			{Name: "Итоговый балл", FieldType: models.FieldComputed, Expression: "avg_score * 1.0"},
			{Name: "Битая формула", FieldType: models.FieldComputed, Expression: "avg_score +"},
		},
	}

	report := &StudentReport{
		Student: &models.User{Username: "sidorova", FirstName: "Анна", LastName: "Сидорова"},
		School:  &models.School{Name: "Школа №5"},
		Period: &models.GradingPeriod{
			Name:      "1 четверть",
			StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
		},
		Grades: []models.Grade{
			{Score: score(92), LetterGrade: "A", Comments: "Отличная работа", Subject: &models.Subject{Name: "Math"}},
			{Score: score(78), LetterGrade: "C", Subject: &models.Subject{Name: "History"}},
		},
		Attendance: AttendanceSummary{Present: 38, Absent: 2, Late: 1},
		ClassName:  "5А",
		Teacher:    "Петрова М.И.",
	}

	builder := NewBuilder(tpl)
	builder.AddStudent(report)

	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, builder.WriteFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestBuilderHandlesEmptyReport(t *testing.T) {
	tpl := &models.ReportTemplate{Name: "Пустой"}
	report := &StudentReport{
		Student: &models.User{Username: "empty"},
		School:  &models.School{Name: "Школа"},
	}

	builder := NewBuilder(tpl)
	builder.AddStudent(report)

	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, builder.WriteFile(path))
}
