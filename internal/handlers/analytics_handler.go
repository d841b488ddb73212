// reportcard-crm/internal/handlers/analytics_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const analyticsCacheTTL = 5 * time.Minute

// analyticsCacheKey - ключ кэша аналитики: вид отчёта + школа + параметры.
func analyticsCacheKey(kind string, schoolID uint, extra string) string {
	return fmt.Sprintf("analytics:%s:%d:%s", kind, schoolID, extra)
}

// cachedAnalytics возвращает закэшированный ответ или вычисляет и кэширует его.
func cachedAnalytics(c *gin.Context, key string, compute func() (gin.H, error)) {
	ctx := context.Background()

	if config.RDB != nil {
		if raw, err := config.RDB.Get(ctx, key).Result(); err == nil {
			var payload gin.H
			if json.Unmarshal([]byte(raw), &payload) == nil {
				c.JSON(http.StatusOK, payload)
				return
			}
		}
	}

	payload, err := compute()
	if err != nil {
		slog.Error("Ошибка вычисления аналитики", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось вычислить аналитику"})
		return
	}

	if config.RDB != nil {
		if raw, err := json.Marshal(payload); err == nil {
			config.RDB.Set(ctx, key, raw, analyticsCacheTTL)
		}
	}
	c.JSON(http.StatusOK, payload)
}

// InvalidateAnalyticsCache сбрасывает кэш аналитики школы. Вызывается из
// пишущих хендлеров оценок и посещаемости.
func InvalidateAnalyticsCache(schoolID uint) {
	if config.RDB == nil {
		return
	}
	ctx := context.Background()
	pattern := fmt.Sprintf("analytics:*:%d:*", schoolID)
	iter := config.RDB.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		config.RDB.Del(ctx, iter.Val())
	}
}

// analyticsSchoolID - школа для аналитики; super_admin без заголовка получает 0
// (агрегаты по всем школам).
func analyticsSchoolID(c *gin.Context) uint {
	if school := activeSchoolID(c); school != nil {
		return *school
	}
	return 0
}

// schoolFilter добавляет условие по школе, если она выбрана.
func schoolFilter(query *gorm.DB, column string, schoolID uint) *gorm.DB {
	if schoolID != 0 {
		return query.Where(column+" = ?", schoolID)
	}
	return query
}

// DashboardStatsHandler - счётчики для главной страницы.
func DashboardStatsHandler(c *gin.Context) {
	schoolID := analyticsSchoolID(c)
	key := analyticsCacheKey("dashboard", schoolID, "")

	cachedAnalytics(c, key, func() (gin.H, error) {
		var students, teachers, classes, subjects, pendingApps, openTickets int64

		schoolFilter(config.DB.Model(&models.User{}).Where("role = ?", models.RoleStudent), "school_id", schoolID).Count(&students)
		schoolFilter(config.DB.Model(&models.User{}).Where("role = ?", models.RoleTeacher), "school_id", schoolID).Count(&teachers)
		schoolFilter(config.DB.Model(&models.ClassSection{}), "school_id", schoolID).Count(&classes)
		schoolFilter(config.DB.Model(&models.Subject{}), "school_id", schoolID).Count(&subjects)
		schoolFilter(config.DB.Model(&models.UserApplication{}).Where("status = ?", models.ApplicationPending), "school_id", schoolID).Count(&pendingApps)
		schoolFilter(config.DB.Model(&models.SupportTicket{}).Where("status IN ?", []string{models.TicketOpen, models.TicketInProgress}), "school_id", schoolID).Count(&openTickets)

		return gin.H{
			"students":             students,
			"teachers":             teachers,
			"class_sections":       classes,
			"subjects":             subjects,
			"pending_applications": pendingApps,
			"open_tickets":         openTickets,
		}, nil
	})
}

// GradeDistributionHandler - распределение буквенных оценок.
func GradeDistributionHandler(c *gin.Context) {
	schoolID := analyticsSchoolID(c)
	periodID := c.Query("grading_period_id")
	key := analyticsCacheKey("grade_distribution", schoolID, periodID)

	cachedAnalytics(c, key, func() (gin.H, error) {
		query := schoolFilter(config.DB.Model(&models.Grade{}), "school_id", schoolID).
			Where("letter_grade <> ''")
		if periodID != "" {
			query = query.Where("grading_period_id = ?", periodID)
		}

		var rows []struct {
			LetterGrade string  `json:"letter_grade"`
			Count       int64   `json:"count"`
			AvgScore    float64 `json:"avg_score"`
		}
		err := query.
			Select("letter_grade, COUNT(*) as count, COALESCE(AVG(score), 0) as avg_score").
			Group("letter_grade").
			Order("letter_grade asc").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		return gin.H{"distribution": rows}, nil
	})
}

// AttendanceTrendsHandler - посещаемость по дням за период.
func AttendanceTrendsHandler(c *gin.Context) {
	schoolID := analyticsSchoolID(c)

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := c.Query("date_from"); v != "" {
		if d, err := parseDate(v); err == nil {
			from = d
		}
	}
	if v := c.Query("date_to"); v != "" {
		if d, err := parseDate(v); err == nil {
			to = d
		}
	}
	key := analyticsCacheKey("attendance_trends", schoolID,
		from.Format("2006-01-02")+":"+to.Format("2006-01-02"))

	cachedAnalytics(c, key, func() (gin.H, error) {
		var rows []struct {
			Date   time.Time `json:"date"`
			Status string    `json:"status"`
			Count  int64     `json:"count"`
		}
		err := schoolFilter(config.DB.Model(&models.Attendance{}), "school_id", schoolID).
			Select("date, status, COUNT(*) as count").
			Where("date BETWEEN ? AND ?", from, to).
			Group("date, status").
			Order("date asc").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}

		// Группировка в дневные корзины
		type bucket struct {
			Date    string `json:"date"`
			Present int64  `json:"present"`
			Absent  int64  `json:"absent"`
			Late    int64  `json:"late"`
			Excused int64  `json:"excused"`
		}
		byDay := map[string]*bucket{}
		var order []string
		for _, row := range rows {
			day := row.Date.Format("2006-01-02")
			b, ok := byDay[day]
			if !ok {
				b = &bucket{Date: day}
				byDay[day] = b
				order = append(order, day)
			}
			switch row.Status {
			case models.AttendancePresent:
				b.Present = row.Count
			case models.AttendanceAbsent:
				b.Absent = row.Count
			case models.AttendanceLate:
				b.Late = row.Count
			case models.AttendanceExcused:
				b.Excused = row.Count
			}
		}
		trends := make([]bucket, 0, len(order))
		for _, day := range order {
			trends = append(trends, *byDay[day])
		}
		return gin.H{
			"date_from": from.Format("2006-01-02"),
			"date_to":   to.Format("2006-01-02"),
			"trends":    trends,
		}, nil
	})
}

// SubjectPerformanceHandler - средний балл по каждому предмету.
func SubjectPerformanceHandler(c *gin.Context) {
	schoolID := analyticsSchoolID(c)
	periodID := c.Query("grading_period_id")
	key := analyticsCacheKey("subject_performance", schoolID, periodID)

	cachedAnalytics(c, key, func() (gin.H, error) {
		query := schoolFilter(config.DB.Model(&models.Grade{}), "grades.school_id", schoolID).
			Joins("JOIN subjects ON subjects.id = grades.subject_id").
			Where("grades.score IS NOT NULL")
		if periodID != "" {
			query = query.Where("grades.grading_period_id = ?", periodID)
		}

		var rows []struct {
			SubjectID   uint    `json:"subject_id"`
			SubjectName string  `json:"subject_name"`
			AvgScore    float64 `json:"avg_score"`
			GradeCount  int64   `json:"grade_count"`
		}
		err := query.
			Select("subjects.id as subject_id, subjects.name as subject_name, AVG(grades.score) as avg_score, COUNT(*) as grade_count").
			Group("subjects.id, subjects.name").
			Order("avg_score desc").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		return gin.H{"subjects": rows}, nil
	})
}

// StudentPerformanceHandler - динамика ученика по периодам.
func StudentPerformanceHandler(c *gin.Context) {
	studentID := c.Param("id")

	var student models.User
	if err := scopeToSchool(c, config.DB.Where("role = ?", models.RoleStudent), "school_id").
		First(&student, studentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ученик не найден"})
		return
	}
	if !canTouchStudent(c, &student) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Нет доступа к этому ученику"})
		return
	}

	var schoolID uint
	if student.SchoolID != nil {
		schoolID = *student.SchoolID
	}
	key := analyticsCacheKey("student_performance", schoolID, studentID)

	cachedAnalytics(c, key, func() (gin.H, error) {
		var rows []struct {
			PeriodID   uint    `json:"grading_period_id"`
			PeriodName string  `json:"grading_period_name"`
			AvgScore   float64 `json:"avg_score"`
			GradeCount int64   `json:"grade_count"`
		}
		err := config.DB.Model(&models.Grade{}).
			Joins("JOIN grading_periods ON grading_periods.id = grades.grading_period_id").
			Where("grades.student_id = ? AND grades.score IS NOT NULL", student.ID).
			Select("grading_periods.id as period_id, grading_periods.name as period_name, AVG(grades.score) as avg_score, COUNT(*) as grade_count").
			Group("grading_periods.id, grading_periods.name").
			Order("MIN(grading_periods.start_date) asc").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}

		var attendance []struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		}
		config.DB.Model(&models.Attendance{}).
			Select("status, COUNT(*) as count").
			Where("student_id = ?", student.ID).
			Group("status").
			Scan(&attendance)

		return gin.H{
			"student_id": student.ID,
			"periods":    rows,
			"attendance": attendance,
		}, nil
	})
}
