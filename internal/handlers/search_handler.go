// reportcard-crm/internal/handlers/search_handler.go
package handlers

import (
	"net/http"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

const searchLimit = 10

// SearchResult - одна найденная сущность с метаданными для фронтенда.
type SearchResult struct {
	Type     string `json:"type"`
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Icon     string `json:"icon"`
	URL      string `json:"url"`
}

// GlobalSearchHandler ищет по пользователям, классам и предметам с учётом
// роли. Запрос короче двух символов даёт пустой результат.
func GlobalSearchHandler(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if len([]rune(q)) < 2 {
		c.JSON(http.StatusOK, gin.H{
			"query":   q,
			"count":   0,
			"results": []SearchResult{},
		})
		return
	}
	pattern := "%" + strings.ToLower(q) + "%"
	role := currentRole(c)

	results := []SearchResult{}

	// Пользователи: ученикам поиск по людям недоступен
	if role != models.RoleStudent {
		userQuery := scopeToSchool(c, config.DB.Model(&models.User{}), "school_id").
			Where("LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
				pattern, pattern, pattern, pattern)
		// Учитель ищет только среди учеников своих классов
		if role == models.RoleTeacher {
			ids, err := taughtStudentIDs(config.DB, currentUserID(c))
			if err != nil || len(ids) == 0 {
				userQuery = userQuery.Where("1 = 0")
			} else {
				userQuery = userQuery.Where("id IN ?", ids)
			}
		}

		var users []models.User
		userQuery.Limit(searchLimit).Find(&users)
		for _, u := range users {
			results = append(results, SearchResult{
				Type:     "user",
				ID:       u.ID,
				Title:    u.FullName(),
				Subtitle: u.Username + " (" + u.Role + ")",
				Icon:     "person",
				URL:      "/users/" + itoa(u.ID),
			})
		}
	}

	var sections []models.ClassSection
	scopeToSchool(c, config.DB.Model(&models.ClassSection{}), "school_id").
		Where("LOWER(name) LIKE ?", pattern).
		Limit(searchLimit).Find(&sections)
	for _, s := range sections {
		results = append(results, SearchResult{
			Type:     "class_section",
			ID:       s.ID,
			Title:    s.Name,
			Subtitle: s.GradeLevel,
			Icon:     "school",
			URL:      "/classes/" + itoa(s.ID),
		})
	}

	var subjects []models.Subject
	scopeToSchool(c, config.DB.Model(&models.Subject{}), "school_id").
		Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern).
		Limit(searchLimit).Find(&subjects)
	for _, s := range subjects {
		results = append(results, SearchResult{
			Type:     "subject",
			ID:       s.ID,
			Title:    s.Name,
			Subtitle: s.Code,
			Icon:     "book",
			URL:      "/subjects/" + itoa(s.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   q,
		"count":   len(results),
		"results": results,
	})
}
