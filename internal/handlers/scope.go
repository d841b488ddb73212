// internal/handlers/scope.go
package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// dbc возвращает подключение к БД с контекстом запроса, чтобы колбэки
// аудита видели автора изменений. Использовать во всех пишущих хендлерах.
func dbc(c *gin.Context) *gorm.DB {
	return config.DB.WithContext(c.Request.Context())
}

// parseDate принимает дату в формате YYYY-MM-DD (так её шлёт фронтенд и
// офлайн-клиент).
func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// mustJSON сериализует уже провалидированное значение в JSON-колонку.
func mustJSON(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint("user_id")
}

func currentRole(c *gin.Context) string {
	return c.GetString("role")
}

// activeSchoolID - школа запроса, выставленная TenantMiddleware.
// nil только у super_admin без заголовка School-ID.
func activeSchoolID(c *gin.Context) *uint {
	v, ok := c.Get("active_school_id")
	if !ok {
		return nil
	}
	id, _ := v.(*uint)
	return id
}

// scopeToSchool повторяет каскад ролевой фильтрации из всех списочных
// эндпоинтов: super_admin видит всё, admin и teacher - свою школу,
// остальные (и пользователи без школы) - ничего.
func scopeToSchool(c *gin.Context, query *gorm.DB, column string) *gorm.DB {
	role := currentRole(c)
	if role == models.RoleSuperAdmin {
		if school := activeSchoolID(c); school != nil {
			return query.Where(column+" = ?", *school)
		}
		return query
	}
	if role == models.RoleAdmin || role == models.RoleTeacher {
		if school := activeSchoolID(c); school != nil {
			return query.Where(column+" = ?", *school)
		}
	}
	return query.Where("1 = 0")
}

// scopeStudentOwned - то же, что scopeToSchool, но ученик видит только свои строки.
func scopeStudentOwned(c *gin.Context, query *gorm.DB, schoolColumn, studentColumn string) *gorm.DB {
	if currentRole(c) == models.RoleStudent {
		return query.Where(studentColumn+" = ?", currentUserID(c))
	}
	return scopeToSchool(c, query, schoolColumn)
}

// resolveSchoolID определяет школу для создаваемой записи: super_admin может
// указать любую (телом запроса или заголовком), остальные пишут только в свою.
func resolveSchoolID(c *gin.Context, requested *uint) (uint, bool) {
	if currentRole(c) == models.RoleSuperAdmin && requested != nil {
		return *requested, true
	}
	if school := activeSchoolID(c); school != nil {
		return *school, true
	}
	return 0, false
}

// taughtStudentIDs возвращает ID учеников из классов, которые ведёт учитель.
func taughtStudentIDs(db *gorm.DB, teacherID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.StudentEnrollment{}).
		Joins("JOIN class_sections ON class_sections.id = student_enrollments.class_section_id").
		Where("class_sections.teacher_id = ?", teacherID).
		Distinct().
		Pluck("student_enrollments.student_id", &ids).Error
	return ids, err
}

// teachesStudent - ведёт ли учитель хоть один класс с этим учеником.
func teachesStudent(db *gorm.DB, teacherID, studentID uint) bool {
	var count int64
	db.Model(&models.StudentEnrollment{}).
		Joins("JOIN class_sections ON class_sections.id = student_enrollments.class_section_id").
		Where("class_sections.teacher_id = ? AND student_enrollments.student_id = ?", teacherID, studentID).
		Count(&count)
	return count > 0
}

// canTouchStudent - может ли пользователь работать с данными ученика:
// super_admin всегда, admin - в своей школе, teacher - со своими учениками.
func canTouchStudent(c *gin.Context, student *models.User) bool {
	switch currentRole(c) {
	case models.RoleSuperAdmin:
		return true
	case models.RoleAdmin:
		school := activeSchoolID(c)
		return school != nil && student.SchoolID != nil && *student.SchoolID == *school
	case models.RoleTeacher:
		return teachesStudent(config.DB, currentUserID(c), student.ID)
	case models.RoleStudent:
		return student.ID == currentUserID(c)
	}
	return false
}
