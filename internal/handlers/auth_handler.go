// reportcard-crm/internal/handlers/auth_handler.go
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/internal/middleware"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterInput struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required,oneof=admin teacher student"`
	SchoolID  *uint  `json:"school_id"`
}

// issueToken подписывает HMAC-токен указанного типа (access или refresh).
func issueToken(user *models.User, typ string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"typ":     typ,
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	}
	if user.SchoolID != nil {
		claims["school_id"] = *user.SchoolID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(config.JwtKey)
}

// LoginHandler проверяет пароль и выдаёт пару токенов. Access-токен
// дополнительно кладётся в cookie для PWA-клиента.
func LoginHandler(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Логин и пароль обязательны"})
		return
	}

	var user models.User
	if err := config.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный логин или пароль"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный логин или пароль"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Учётная запись деактивирована"})
		return
	}

	access, err := issueToken(&user, "access", config.AccessTokenTTL)
	if err != nil {
		slog.Error("Не удалось подписать access-токен", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}
	refresh, err := issueToken(&user, "refresh", config.RefreshTokenTTL)
	if err != nil {
		slog.Error("Не удалось подписать refresh-токен", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}

	c.SetCookie("auth_token", access, int(config.AccessTokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"access":  access,
		"refresh": refresh,
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"full_name": user.FullName(),
			"role":      user.Role,
			"school_id": user.SchoolID,
		},
	})
}

// RefreshTokenHandler обменивает refresh-токен на новый access-токен.
func RefreshTokenHandler(c *gin.Context) {
	var body struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token required"})
		return
	}

	token, err := jwt.Parse(body.Refresh, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return config.JwtKey, nil
	})
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != "refresh" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not a refresh token"})
		return
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return
	}

	var user models.User
	if err := config.DB.First(&user, uint(userIDFloat)).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Пользователь не найден"})
		return
	}

	access, err := issueToken(&user, "access", config.AccessTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}
	c.SetCookie("auth_token", access, int(config.AccessTokenTTL.Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// VerifyTokenHandler - лёгкая проверка токена для PWA-клиента.
// Запрос уже прошёл AuthMiddleware, достаточно вернуть контекст.
func VerifyTokenHandler(c *gin.Context) {
	var schoolID *uint
	if v, ok := c.Get("user_school_id"); ok {
		schoolID, _ = v.(*uint)
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":     true,
		"user_id":   currentUserID(c),
		"username":  c.GetString("username"),
		"role":      currentRole(c),
		"school_id": schoolID,
	})
}

// RegisterHandler создаёт заявку на регистрацию. Пользователь появится
// только после одобрения заявки администратором.
func RegisterHandler(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var existing models.User
	if err := config.DB.Where("username = ?", input.Username).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Пользователь с таким именем уже существует"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка проверки имени пользователя"})
		return
	}

	if input.SchoolID != nil {
		var school models.School
		if err := config.DB.First(&school, *input.SchoolID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Указанная школа не найдена"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обработать пароль"})
		return
	}

	app := models.UserApplication{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: string(hash),
		Role:         input.Role,
		SchoolID:     input.SchoolID,
		Status:       models.ApplicationPending,
	}
	if err := dbc(c).Create(&app).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать заявку: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Заявка отправлена и ожидает одобрения администратора",
		"application": app,
	})
}

// LogoutHandler гасит cookie и сбрасывает кэш пользователя.
func LogoutHandler(c *gin.Context) {
	if userID := currentUserID(c); userID != 0 {
		middleware.InvalidateUserCache(userID)
	}
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Вы вышли из системы"})
}
