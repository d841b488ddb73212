package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSyncDB подменяет глобальное подключение in-memory базой на время теста.
func setupSyncDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.School{}, &models.User{}, &models.Subject{},
		&models.GradingPeriod{}, &models.StudentEnrollment{},
		&models.ClassSection{}, &models.GradingScale{},
		&models.Grade{}, &models.Attendance{},
	))

	prev := config.DB
	config.DB = db
	t.Cleanup(func() { config.DB = prev })
	return db
}

func syncContext(t *testing.T, method, target string, body interface{}, role string, schoolID *uint) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")

	c.Set("user_id", uint(42))
	c.Set("role", role)
	c.Set("active_school_id", schoolID)
	return c, w
}

func decodePush(t *testing.T, w *httptest.ResponseRecorder) pushResult {
	t.Helper()
	var res pushResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestSyncPushCreate(t *testing.T) {
	db := setupSyncDB(t)
	school := uint(1)

	payload := gin.H{
		"subjects": []gin.H{
			{"action": "create", "data": gin.H{"name": "Математика", "code": "MATH", "school_id": 99}},
		},
	}
	c, w := syncContext(t, http.MethodPost, "/api/sync/push", payload, models.RoleTeacher, &school)
	SyncPushHandler(c)

	require.Equal(t, http.StatusOK, w.Code)
	res := decodePush(t, w)
	assert.Len(t, res.Created["subjects"], 1)
	assert.Empty(t, res.Errors["subjects"])

	// Учитель не может протолкнуть строку в чужую школу
	var stored models.Subject
	require.NoError(t, db.First(&stored, "name = ?", "Математика").Error)
	assert.Equal(t, uint(1), stored.SchoolID)
}

func TestSyncPushUpdateUnknownIDCreates(t *testing.T) {
	db := setupSyncDB(t)
	school := uint(1)

	payload := gin.H{
		"subjects": []gin.H{
			{"action": "update", "data": gin.H{"id": 777, "name": "Физика", "school_id": 1}},
		},
	}
	c, w := syncContext(t, http.MethodPost, "/api/sync/push", payload, models.RoleAdmin, &school)
	SyncPushHandler(c)

	res := decodePush(t, w)
	assert.Len(t, res.Created["subjects"], 1)
	assert.Empty(t, res.Updated["subjects"])
	assert.Empty(t, res.Conflicts["subjects"])

	var count int64
	db.Model(&models.Subject{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSyncPushConflictServerNewer(t *testing.T) {
	db := setupSyncDB(t)
	school := uint(1)

	subject := models.Subject{Name: "Химия", Code: "CHEM", SchoolID: 1}
	require.NoError(t, db.Create(&subject).Error)

	// Клиент шлёт версию, которую видел до изменения на сервере
	payload := gin.H{
		"subjects": []gin.H{
			{"action": "update", "data": gin.H{
				"id":         subject.ID,
				"name":       "Алхимия",
				"updated_at": "2020-01-01T00:00:00Z",
			}},
		},
	}
	c, w := syncContext(t, http.MethodPost, "/api/sync/push", payload, models.RoleAdmin, &school)
	SyncPushHandler(c)

	res := decodePush(t, w)
	require.Len(t, res.Conflicts["subjects"], 1)
	conflict := res.Conflicts["subjects"][0].(map[string]interface{})
	assert.Equal(t, "server_newer", conflict["reason"])
	assert.Equal(t, "2020-01-01T00:00:00Z", conflict["incoming_updated_at"])
	assert.Empty(t, res.Updated["subjects"])

	// Серверная строка не тронута
	var stored models.Subject
	require.NoError(t, db.First(&stored, subject.ID).Error)
	assert.Equal(t, "Химия", stored.Name)
}

func TestSyncPushUpdateClientNewer(t *testing.T) {
	db := setupSyncDB(t)
	school := uint(1)

	subject := models.Subject{Name: "История", SchoolID: 1}
	require.NoError(t, db.Create(&subject).Error)

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	payload := gin.H{
		"subjects": []gin.H{
			{"action": "update", "data": gin.H{
				"id":         subject.ID,
				"name":       "Всемирная история",
				"updated_at": future,
			}},
		},
	}
	c, w := syncContext(t, http.MethodPost, "/api/sync/push", payload, models.RoleAdmin, &school)
	SyncPushHandler(c)

	res := decodePush(t, w)
	require.Len(t, res.Updated["subjects"], 1)
	assert.Empty(t, res.Conflicts["subjects"])

	// В ответе - сохранённое состояние строки, не прежнее
	returned := res.Updated["subjects"][0].(map[string]interface{})
	assert.Equal(t, "Всемирная история", returned["name"])

	var stored models.Subject
	require.NoError(t, db.First(&stored, subject.ID).Error)
	assert.Equal(t, "Всемирная история", stored.Name)
}

func TestSyncPushDeleteMissingIgnored(t *testing.T) {
	setupSyncDB(t)
	school := uint(1)

	payload := gin.H{
		"subjects": []gin.H{
			{"action": "delete", "data": gin.H{"id": 12345}},
		},
	}
	c, w := syncContext(t, http.MethodPost, "/api/sync/push", payload, models.RoleAdmin, &school)
	SyncPushHandler(c)

	res := decodePush(t, w)
	assert.Empty(t, res.Deleted["subjects"])
	assert.Empty(t, res.Errors["subjects"])
}

func TestSyncPushUnknownAction(t *testing.T) {
	setupSyncDB(t)
	school := uint(1)

	payload := gin.H{
		"subjects": []gin.H{
			{"action": "merge", "data": gin.H{"id": 1}},
		},
	}
	c, w := syncContext(t, http.MethodPost, "/api/sync/push", payload, models.RoleAdmin, &school)
	SyncPushHandler(c)

	res := decodePush(t, w)
	require.Len(t, res.Errors["subjects"], 1)
	errEntry := res.Errors["subjects"][0].(map[string]interface{})
	assert.Equal(t, "unknown action", errEntry["error"])
}

func TestSyncPushUnknownModelSkipped(t *testing.T) {
	setupSyncDB(t)
	school := uint(1)

	payload := gin.H{
		"spaceships": []gin.H{
			{"action": "create", "data": gin.H{"name": "Восток-1"}},
		},
	}
	c, w := syncContext(t, http.MethodPost, "/api/sync/push", payload, models.RoleAdmin, &school)
	SyncPushHandler(c)

	require.Equal(t, http.StatusOK, w.Code)
	res := decodePush(t, w)
	assert.NotContains(t, res.Created, "spaceships")
}

func TestSyncPullRequiresLastSync(t *testing.T) {
	setupSyncDB(t)
	school := uint(1)

	c, w := syncContext(t, http.MethodGet, "/api/sync", nil, models.RoleAdmin, &school)
	SyncPullHandler(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = syncContext(t, http.MethodGet, "/api/sync?last_sync=not-a-date", nil, models.RoleAdmin, &school)
	SyncPullHandler(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncPullScopedToSchool(t *testing.T) {
	db := setupSyncDB(t)
	school := uint(1)

	require.NoError(t, db.Create(&models.School{Name: "Школа №1"}).Error)
	require.NoError(t, db.Create(&models.Subject{Name: "Литература", SchoolID: 1}).Error)
	require.NoError(t, db.Create(&models.Subject{Name: "Чужой предмет", SchoolID: 2}).Error)

	c, w := syncContext(t, http.MethodGet, "/api/sync?last_sync=2020-01-01T00:00:00Z", nil, models.RoleAdmin, &school)
	SyncPullHandler(c)
	require.Equal(t, http.StatusOK, w.Code)

	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))

	// Школы не выгружаются никому, кроме super_admin
	var schools []models.School
	require.NoError(t, json.Unmarshal(data["school"], &schools))
	assert.Empty(t, schools)

	var subjects []models.Subject
	require.NoError(t, json.Unmarshal(data["subject"], &subjects))
	require.Len(t, subjects, 1)
	assert.Equal(t, "Литература", subjects[0].Name)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(data["_meta"], &meta))
	assert.Equal(t, float64(42), meta["user_id"])
	assert.Equal(t, float64(1), meta["school_id"])
	assert.NotEmpty(t, meta["last_sync"])
}

func TestSyncPullInvalidSchoolOverride(t *testing.T) {
	setupSyncDB(t)
	school := uint(1)

	c, w := syncContext(t, http.MethodGet, "/api/sync?last_sync=2020-01-01T00:00:00Z&school_id=999", nil, models.RoleSuperAdmin, &school)
	SyncPullHandler(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
