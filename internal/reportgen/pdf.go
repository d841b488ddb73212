// reportcard-crm/internal/reportgen/pdf.go
// Генерация PDF-табелей по настраиваемому шаблону школы.
package reportgen

import (
	"fmt"
	"strings"

	"reportcard-crm/models"

	"github.com/Knetic/govaluate"
	"github.com/divan/num2words"
	"github.com/jung-kurt/gofpdf"
)

// StudentReport - все данные одного ученика, попадающие в табель.
type StudentReport struct {
	Student    *models.User
	School     *models.School
	Profile    *models.SchoolProfile
	Period     *models.GradingPeriod
	Grades     []models.Grade
	Attendance AttendanceSummary
	ClassName  string
	Teacher    string
}

// AttendanceSummary - сводка посещаемости за период.
type AttendanceSummary struct {
	Present int
	Absent  int
	Late    int
	Excused int
}

func (s AttendanceSummary) Total() int {
	return s.Present + s.Absent + s.Late + s.Excused
}

// Rate - доля присутствия в процентах; 100 при отсутствии записей.
func (s AttendanceSummary) Rate() float64 {
	total := s.Total()
	if total == 0 {
		return 100
	}
	return float64(s.Present+s.Late) / float64(total) * 100
}

// AverageScore - средний балл по оценкам с числовым значением.
func (r *StudentReport) AverageScore() (float64, bool) {
	sum, n := 0.0, 0
	for _, g := range r.Grades {
		if g.Score != nil {
			sum += *g.Score
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Variables - значения, доступные формулам вычисляемых полей шаблона.
func (r *StudentReport) Variables() map[string]interface{} {
	avg, _ := r.AverageScore()
	return map[string]interface{}{
		"avg_score":      avg,
		"attendance_pct": r.Attendance.Rate(),
		"grades_count":   len(r.Grades),
		"absences":       r.Attendance.Absent,
	}
}

// Builder собирает PDF из одного или нескольких табелей, по странице
// на ученика.
type Builder struct {
	pdf      *gofpdf.Fpdf
	template *models.ReportTemplate
}

func NewBuilder(template *models.ReportTemplate) *Builder {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	return &Builder{pdf: pdf, template: template}
}

// hexToRGB разбирает цвет вида #RRGGBB; на мусор возвращает чёрный.
func hexToRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0
	}
	return r, g, b
}

// AddStudent добавляет страницу с табелем одного ученика.
func (b *Builder) AddStudent(report *StudentReport) {
	t := b.template
	pdf := b.pdf
	pdf.AddPage()

	// Шапка в цветах шаблона
	br, bg, bb := hexToRGB(t.HeaderBackgroundColor)
	tr, tg, tb := hexToRGB(t.HeaderTextColor)
	pdf.SetFillColor(br, bg, bb)
	pdf.SetTextColor(tr, tg, tb)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 14, b.headerTitle(report), "", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, report.School.Name, "", 1, "C", true, 0, "")
	pdf.Ln(4)

	pdf.SetTextColor(0, 0, 0)

	// Данные ученика
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, report.Student.FullName(), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if report.ClassName != "" {
		pdf.CellFormat(0, 6, "Class: "+report.ClassName, "", 1, "L", false, 0, "")
	}
	if report.Period != nil {
		label := t.GradingPeriodLabel
		if label == "" {
			label = "Grading Period"
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s (%s - %s)",
			label, report.Period.Name,
			report.Period.StartDate.Format("02.01.2006"),
			report.Period.EndDate.Format("02.01.2006")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	b.gradesTable(report)

	if t.IncludeAttendanceSummary == nil || *t.IncludeAttendanceSummary {
		b.attendanceBlock(report)
	}

	b.computedFields(report)
	b.averageBlock(report)

	if t.IncludeTeacherComments == nil || *t.IncludeTeacherComments {
		b.commentsBlock(report)
	}

	b.footer(report)
}

func (b *Builder) headerTitle(report *StudentReport) string {
	if b.template.ReportTitle != "" {
		return b.template.ReportTitle
	}
	if report.Profile != nil && report.Profile.ReportHeader != "" {
		return report.Profile.ReportHeader
	}
	return "Report Card"
}

func (b *Builder) gradesTable(report *StudentReport) {
	pdf := b.pdf
	pr, pg, pb := hexToRGB(b.template.PrimaryColor)

	pdf.SetFillColor(pr, pg, pb)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 8, "Subject", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Score", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Grade", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 8, "Comments", "1", 1, "L", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	for _, g := range report.Grades {
		subject := ""
		if g.Subject != nil {
			subject = g.Subject.Name
		}
		score := "-"
		if g.Score != nil {
			score = fmt.Sprintf("%.1f", *g.Score)
		}
		comments := g.Comments
		if len(comments) > 40 {
			comments = comments[:37] + "..."
		}
		pdf.CellFormat(80, 7, subject, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, score, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, g.LetterGrade, "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, comments, "1", 1, "L", false, 0, "")
	}
	if len(report.Grades) == 0 {
		pdf.CellFormat(190, 7, "No grades recorded for this period", "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
}

func (b *Builder) attendanceBlock(report *StudentReport) {
	pdf := b.pdf
	s := report.Attendance

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Attendance", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf(
		"Present: %d   Absent: %d   Late: %d   Excused: %d   Rate: %.1f%%",
		s.Present, s.Absent, s.Late, s.Excused, s.Rate()), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

// computedFields вычисляет формулы дополнительных полей шаблона.
// Поле с битой формулой пропускается.
func (b *Builder) computedFields(report *StudentReport) {
	var computed []models.TemplateField
	for _, f := range b.template.Fields {
		if f.FieldType == models.FieldComputed && f.Expression != "" {
			computed = append(computed, f)
		}
	}
	if len(computed) == 0 {
		return
	}

	pdf := b.pdf
	vars := report.Variables()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Additional Indicators", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, f := range computed {
		expr, err := govaluate.NewEvaluableExpression(f.Expression)
		if err != nil {
			continue
		}
		result, err := expr.Evaluate(vars)
		if err != nil {
			continue
		}
		value := fmt.Sprintf("%v", result)
		if num, ok := result.(float64); ok {
			value = fmt.Sprintf("%.2f", num)
		}
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s", f.Name, value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
}

func (b *Builder) averageBlock(report *StudentReport) {
	avg, ok := report.AverageScore()
	if !ok {
		return
	}
	pdf := b.pdf
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Overall Average: %.2f (%s)",
		avg, strings.TrimSpace(num2words.Convert(int(avg)))), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (b *Builder) commentsBlock(report *StudentReport) {
	pdf := b.pdf
	label := b.template.TeacherLabel
	if label == "" {
		label = "Class Teacher"
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, label+" Comments", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	commented := false
	for _, g := range report.Grades {
		if g.Comments == "" || g.Subject == nil {
			continue
		}
		pdf.MultiCell(0, 6, g.Subject.Name+": "+g.Comments, "", "L", false)
		commented = true
	}
	if !commented {
		pdf.CellFormat(0, 6, "-", "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
}

func (b *Builder) footer(report *StudentReport) {
	pdf := b.pdf
	t := b.template

	footer := t.FooterText
	if footer == "" && report.Profile != nil {
		footer = report.Profile.ReportFooter
	}
	if footer != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, footer, "", 1, "C", false, 0, "")
	}

	if t.IncludePrincipalSign == nil || *t.IncludePrincipalSign {
		label := t.PrincipalLabel
		if label == "" {
			label = "Principal"
		}
		signature := ""
		if report.Profile != nil {
			signature = report.Profile.ReportSignature
		}
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, label+": "+signature+" ____________________", "", 1, "R", false, 0, "")
	}
	if report.Teacher != "" {
		label := t.TeacherLabel
		if label == "" {
			label = "Class Teacher"
		}
		pdf.CellFormat(0, 6, label+": "+report.Teacher, "", 1, "R", false, 0, "")
	}
}

// WriteFile сохраняет собранный документ на диск.
func (b *Builder) WriteFile(path string) error {
	return b.pdf.OutputFileAndClose(path)
}
