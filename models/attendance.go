// reportcard-crm/models/attendance.go
package models

import "time"

// Статусы посещаемости.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// ValidAttendanceStatus проверяет, что статус входит в допустимый набор.
func ValidAttendanceStatus(status string) bool {
	switch status {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attendance - запись посещаемости: один ученик, один класс, одна дата.
type Attendance struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	StudentID      uint      `json:"student_id" gorm:"index;uniqueIndex:idx_attendance_student_class_date;not null"`
	ClassSectionID uint      `json:"class_section_id" gorm:"index;uniqueIndex:idx_attendance_student_class_date;not null"`
	Date           time.Time `json:"date" gorm:"type:date;index;uniqueIndex:idx_attendance_student_class_date;not null"`
	Status         string    `json:"status" gorm:"size:20;default:present"`
	Notes          string    `json:"notes"`
	SchoolID       uint      `json:"school_id" gorm:"index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"index"`

	Student      *User         `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	ClassSection *ClassSection `json:"class_section,omitempty" gorm:"foreignKey:ClassSectionID"`
}
