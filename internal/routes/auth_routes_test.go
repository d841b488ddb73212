package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.UserApplication{}, &models.School{}))

	prevDB, prevKey := config.DB, config.JwtKey
	config.DB = db
	config.JwtKey = []byte("test-secret")
	t.Cleanup(func() {
		config.DB = prevDB
		config.JwtKey = prevKey
	})

	r := gin.New()
	RegisterAuthRoutes(r)
	return r
}

func accessTokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"typ":     "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.JwtKey)
	require.NoError(t, err)
	return token
}

func TestVerifyTokenRequiresAuth(t *testing.T) {
	r := setupAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/token/verify", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Мусорный токен тоже не проходит
	req := httptest.NewRequest(http.MethodGet, "/auth/token/verify", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyTokenReturnsContext(t *testing.T) {
	r := setupAuthRouter(t)

	school := uint(4)
	user := models.User{Username: "zhanna", Role: models.RoleTeacher, SchoolID: &school, IsActive: true}
	require.NoError(t, config.DB.Create(&user).Error)

	req := httptest.NewRequest(http.MethodGet, "/auth/token/verify", nil)
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, &user))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, float64(user.ID), body["user_id"])
	assert.Equal(t, "zhanna", body["username"])
	assert.Equal(t, models.RoleTeacher, body["role"])
	assert.Equal(t, float64(4), body["school_id"])
}

func TestLogoutRequiresAuth(t *testing.T) {
	r := setupAuthRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	r := setupAuthRouter(t)

	user := models.User{Username: "bolat", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, config.DB.Create(&user).Error)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+accessTokenFor(t, &user))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "auth_token=")
	assert.Contains(t, cookie, "Max-Age=0")
}
