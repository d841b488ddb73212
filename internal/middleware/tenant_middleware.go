package middleware

import (
	"net/http"
	"strconv"

	"reportcard-crm/config"
	"reportcard-crm/internal/audit"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
)

// TenantMiddleware определяет активную школу запроса.
// Приоритет: заголовок School-ID > школа пользователя из токена.
// super_admin может адресовать любую школу, остальные жёстко привязаны к своей.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		userSchoolID, _ := c.MustGet("user_school_id").(*uint)

		var activeSchoolID *uint

		if header := c.GetHeader("School-ID"); header != "" {
			id64, err := strconv.ParseUint(header, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный заголовок School-ID"})
				c.Abort()
				return
			}
			requested := uint(id64)

			if role != models.RoleSuperAdmin {
				if userSchoolID == nil || *userSchoolID != requested {
					c.JSON(http.StatusForbidden, gin.H{"error": "Доступ к чужой школе запрещён"})
					c.Abort()
					return
				}
				activeSchoolID = userSchoolID
			} else {
				var school models.School
				if err := config.DB.First(&school, requested).Error; err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Школа из заголовка School-ID не найдена"})
					c.Abort()
					return
				}
				activeSchoolID = &school.ID
			}
		} else {
			activeSchoolID = userSchoolID
		}

		c.Set("active_school_id", activeSchoolID)

		// Прокидываем автора запроса в context БД, чтобы аудит знал, кто меняет данные
		actor := audit.Actor{UserID: c.GetUint("user_id"), SchoolID: activeSchoolID}
		c.Request = c.Request.WithContext(audit.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}
