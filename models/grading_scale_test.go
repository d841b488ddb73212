package models

import "testing"

func TestResolveLetterGrade(t *testing.T) {
	ranges := []GradeRange{
		{Grade: "F", MinScore: 0, MaxScore: 59},
		{Grade: "D", MinScore: 60, MaxScore: 69},
		{Grade: "C", MinScore: 70, MaxScore: 79},
		{Grade: "B", MinScore: 80, MaxScore: 89},
		{Grade: "A", MinScore: 90, MaxScore: 100},
	}

	tests := []struct {
		name  string
		score float64
		want  string
	}{
		{"верхняя граница", 100, "A"},
		{"нижняя граница диапазона", 90, "A"},
		{"середина диапазона", 75, "C"},
		{"ровно на стыке", 60, "D"},
		{"ноль", 0, "F"},
		{"вне всех диапазонов", 101, ""},
		{"отрицательный балл", -1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveLetterGrade(ranges, tt.score); got != tt.want {
				t.Errorf("ResolveLetterGrade(%v) = %q, want %q", tt.score, got, tt.want)
			}
		})
	}
}

// При пересечении диапазонов побеждает тот, что выше по min_score.
func TestResolveLetterGradeOverlap(t *testing.T) {
	ranges := []GradeRange{
		{Grade: "Pass", MinScore: 50, MaxScore: 100},
		{Grade: "Merit", MinScore: 75, MaxScore: 100},
	}
	if got := ResolveLetterGrade(ranges, 80); got != "Merit" {
		t.Errorf("score 80 = %q, want Merit", got)
	}
	if got := ResolveLetterGrade(ranges, 60); got != "Pass" {
		t.Errorf("score 60 = %q, want Pass", got)
	}
}

func TestResolveLetterGradeEmpty(t *testing.T) {
	if got := ResolveLetterGrade(nil, 50); got != "" {
		t.Errorf("пустая шкала должна возвращать пустую строку, got %q", got)
	}
}
