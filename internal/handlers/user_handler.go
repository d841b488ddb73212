// reportcard-crm/internal/handlers/user_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/internal/middleware"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserResponse defines the structure for user data sent in API responses.
// This helps prevent accidental leakage of sensitive data like password hashes.
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	SchoolID  *uint     `json:"school_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateUserInput struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=super_admin admin teacher student"`
	SchoolID  *uint  `json:"school_id"`
}

type UpdateUserInput struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" binding:"required,oneof=super_admin admin teacher student"`
	SchoolID  *uint  `json:"school_id"`
	IsActive  *bool  `json:"is_active"`
	Password  string `json:"password"` // для смены пароля, необязательно
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName(),
		Role:      user.Role,
		SchoolID:  user.SchoolID,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

// ListUsersHandler возвращает пользователей активной школы с фильтром по роли
// и поиском. super_admin без заголовка School-ID видит всех.
func ListUsersHandler(c *gin.Context) {
	query := scopeToSchool(c, config.DB.Model(&models.User{}), "school_id").Order("id asc")

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var users []models.User
	if wantAll(c) {
		if err := query.Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch users"})
			return
		}
	} else {
		var totalRows int64
		query.Count(&totalRows)
		if err := query.Scopes(Paginate(c)).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch users"})
			return
		}
		responseData := make([]UserResponse, 0, len(users))
		for i := range users {
			responseData = append(responseData, toUserResponse(&users[i]))
		}
		c.JSON(http.StatusOK, CreatePaginatedResponse(c, responseData, totalRows))
		return
	}

	responseData := make([]UserResponse, 0, len(users))
	for i := range users {
		responseData = append(responseData, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": responseData})
}

// GetUserHandler - карточка пользователя. Ученик может смотреть только себя.
func GetUserHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный ID пользователя"})
		return
	}

	var user models.User
	if err := config.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !canTouchStudent(c, &user) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(&user))
}

func CreateUserHandler(c *gin.Context) {
	var input CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Админ школы создаёт пользователей только в своей школе
	if currentRole(c) != models.RoleSuperAdmin {
		input.SchoolID = activeSchoolID(c)
		if input.Role == models.RoleSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Нельзя создать super_admin"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Password hashing failed"})
		return
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: string(hash),
		Role:         input.Role,
		SchoolID:     input.SchoolID,
		IsActive:     true,
	}
	if err := dbc(c).Create(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать пользователя: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(&user))
}

func UpdateUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
		return
	}

	if currentRole(c) != models.RoleSuperAdmin {
		school := activeSchoolID(c)
		if school == nil || user.SchoolID == nil || *user.SchoolID != *school {
			c.JSON(http.StatusForbidden, gin.H{"error": "Доступ к чужой школе запрещён"})
			return
		}
	}

	var input UpdateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user.Email = input.Email
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Role = input.Role
	if currentRole(c) == models.RoleSuperAdmin && input.SchoolID != nil {
		user.SchoolID = input.SchoolID
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Password hashing failed"})
			return
		}
		user.PasswordHash = string(hash)
	}

	if err := dbc(c).Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить пользователя: " + err.Error()})
		return
	}

	// Роль или школа могли измениться - кэш авторизации больше не валиден
	middleware.InvalidateUserCache(user.ID)

	c.JSON(http.StatusOK, toUserResponse(&user))
}

func DeleteUserHandler(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
		return
	}

	if currentRole(c) != models.RoleSuperAdmin {
		school := activeSchoolID(c)
		if school == nil || user.SchoolID == nil || *user.SchoolID != *school {
			c.JSON(http.StatusForbidden, gin.H{"error": "Доступ к чужой школе запрещён"})
			return
		}
	}
	if user.ID == currentUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Нельзя удалить самого себя"})
		return
	}

	if err := dbc(c).Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить пользователя: " + err.Error()})
		return
	}
	middleware.InvalidateUserCache(user.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Пользователь удалён"})
}
