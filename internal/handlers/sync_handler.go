// reportcard-crm/internal/handlers/sync_handler.go
//
// Офлайн-синхронизация PWA-клиентов: выгрузка изменений с момента last_sync
// и приём пакетов изменений с разрешением конфликтов "сервер новее".
package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// syncEntry - одно изменение из пакета клиента.
type syncEntry struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// syncOps - операции pull/push для одной синхронизируемой модели.
type syncOps struct {
	pull func(db *gorm.DB, since time.Time, school *uint) (interface{}, error)
	push func(c *gin.Context, key string, entries []syncEntry, school *uint, res *pushResult)
}

// pushResult - агрегированный ответ push-синхронизации:
// ключ модели → список результатов.
type pushResult struct {
	Created   map[string][]interface{} `json:"created"`
	Updated   map[string][]interface{} `json:"updated"`
	Deleted   map[string][]interface{} `json:"deleted"`
	Errors    map[string][]interface{} `json:"errors"`
	Conflicts map[string][]interface{} `json:"conflicts"`
}

func newPushResult() *pushResult {
	return &pushResult{
		Created:   map[string][]interface{}{},
		Updated:   map[string][]interface{}{},
		Deleted:   map[string][]interface{}{},
		Errors:    map[string][]interface{}{},
		Conflicts: map[string][]interface{}{},
	}
}

func (r *pushResult) ensure(key string) {
	if _, ok := r.Created[key]; ok {
		return
	}
	r.Created[key] = []interface{}{}
	r.Updated[key] = []interface{}{}
	r.Deleted[key] = []interface{}{}
	r.Errors[key] = []interface{}{}
	r.Conflicts[key] = []interface{}{}
}

// rowID читает поле ID модели.
func rowID(model interface{}) uint {
	rv := reflect.Indirect(reflect.ValueOf(model))
	f := rv.FieldByName("ID")
	if !f.IsValid() {
		return 0
	}
	return uint(f.Uint())
}

// rowUpdatedAt читает поле UpdatedAt модели.
func rowUpdatedAt(model interface{}) time.Time {
	rv := reflect.Indirect(reflect.ValueOf(model))
	f := rv.FieldByName("UpdatedAt")
	if !f.IsValid() {
		return time.Time{}
	}
	t, _ := f.Interface().(time.Time)
	return t
}

// forceSchool пишет школу запроса в модель; поддерживает uint и *uint.
func forceSchool(model interface{}, schoolID uint) {
	rv := reflect.Indirect(reflect.ValueOf(model))
	f := rv.FieldByName("SchoolID")
	if !f.IsValid() || !f.CanSet() {
		return
	}
	switch f.Kind() {
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		f.SetUint(uint64(schoolID))
	case reflect.Ptr:
		id := schoolID
		f.Set(reflect.ValueOf(&id))
	}
}

// syncAdapter строит операции pull/push для конкретного типа модели.
// hasSchool=false только у School: её видит лишь super_admin.
func syncAdapter[T any](hasSchool bool) syncOps {
	return syncOps{
		pull: func(db *gorm.DB, since time.Time, school *uint) (interface{}, error) {
			rows := []T{}
			query := db.Model(new(T)).Where("updated_at > ?", since)
			if hasSchool && school != nil {
				query = query.Where("school_id = ?", *school)
			}
			if err := query.Find(&rows).Error; err != nil {
				return nil, err
			}
			return rows, nil
		},
		push: func(c *gin.Context, key string, entries []syncEntry, school *uint, res *pushResult) {
			db := dbc(c)
			for _, entry := range entries {
				action := entry.Action
				if action == "" {
					action = "update"
				}
				switch action {
				case "create":
					pushCreate[T](db, c, key, entry, school, res)
				case "update":
					pushUpdate[T](db, c, key, entry, school, res)
				case "delete":
					pushDelete[T](db, key, entry, res)
				default:
					res.Errors[key] = append(res.Errors[key], gin.H{
						"entry": entry, "error": "unknown action",
					})
				}
			}
		},
	}
}

// entryMeta - служебные поля записи клиента: id и исходная строка updated_at.
type entryMeta struct {
	ID        uint   `json:"id"`
	UpdatedAt string `json:"updated_at"`
}

// parseClientTime разбирает метку времени клиента; офлайн-клиент шлёт
// RFC3339 с суффиксом Z.
func parseClientTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func decodeEntry[T any](c *gin.Context, entry syncEntry, school *uint) (*T, error) {
	row := new(T)
	if err := json.Unmarshal(entry.Data, row); err != nil {
		return nil, err
	}
	// Не-super_admin не может протолкнуть строку в чужую школу
	if currentRole(c) != models.RoleSuperAdmin && school != nil {
		forceSchool(row, *school)
	}
	return row, nil
}

func pushCreate[T any](db *gorm.DB, c *gin.Context, key string, entry syncEntry, school *uint, res *pushResult) {
	row, err := decodeEntry[T](c, entry, school)
	if err != nil {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": err.Error()})
		return
	}
	if err := db.Create(row).Error; err != nil {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": err.Error()})
		return
	}
	res.Created[key] = append(res.Created[key], row)
}

func pushUpdate[T any](db *gorm.DB, c *gin.Context, key string, entry syncEntry, school *uint, res *pushResult) {
	var meta entryMeta
	if err := json.Unmarshal(entry.Data, &meta); err != nil || meta.ID == 0 {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": "missing id for update"})
		return
	}

	existing := new(T)
	err := db.First(existing, meta.ID).Error
	if err != nil {
		// Неизвестный id трактуем как создание: клиент мог сгенерировать
		// строку офлайн до того, как сервер её потерял
		pushCreate[T](db, c, key, entry, school, res)
		return
	}

	serverUpdatedAt := rowUpdatedAt(existing)
	if incoming, ok := parseClientTime(meta.UpdatedAt); ok && serverUpdatedAt.After(incoming) {
		res.Conflicts[key] = append(res.Conflicts[key], gin.H{
			"id":                  meta.ID,
			"reason":              "server_newer",
			"server_updated_at":   serverUpdatedAt.Format(time.RFC3339),
			"incoming_updated_at": meta.UpdatedAt,
		})
		return
	}

	row, err := decodeEntry[T](c, entry, school)
	if err != nil {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": err.Error()})
		return
	}
	if err := db.Model(existing).Updates(row).Error; err != nil {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": err.Error()})
		return
	}
	// Клиенту возвращается сохранённое состояние строки
	if err := db.First(existing, meta.ID).Error; err != nil {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": err.Error()})
		return
	}
	res.Updated[key] = append(res.Updated[key], existing)
}

func pushDelete[T any](db *gorm.DB, key string, entry syncEntry, res *pushResult) {
	var meta entryMeta
	if err := json.Unmarshal(entry.Data, &meta); err != nil || meta.ID == 0 {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": "missing id for delete"})
		return
	}

	existing := new(T)
	if err := db.First(existing, meta.ID).Error; err != nil {
		// Удаление несуществующей строки не ошибка: клиент и сервер сходятся
		return
	}
	if err := db.Delete(existing).Error; err != nil {
		res.Errors[key] = append(res.Errors[key], gin.H{"entry": entry, "error": err.Error()})
		return
	}
	res.Deleted[key] = append(res.Deleted[key], gin.H{"id": meta.ID})
}

// syncModels - реестр синхронизируемых моделей. Ключи совпадают с именами
// моделей в нижнем регистре, как их знает офлайн-клиент.
var syncModels = map[string]syncOps{
	"school":            syncAdapter[models.School](false),
	"user":              syncAdapter[models.User](true),
	"classsection":      syncAdapter[models.ClassSection](true),
	"subject":           syncAdapter[models.Subject](true),
	"gradingscale":      syncAdapter[models.GradingScale](true),
	"gradingperiod":     syncAdapter[models.GradingPeriod](true),
	"studentenrollment": syncAdapter[models.StudentEnrollment](true),
	"grade":             syncAdapter[models.Grade](true),
	"attendance":        syncAdapter[models.Attendance](true),
}

// Порядок выгрузки: сначала справочники, затем зависящие от них строки.
var syncOrder = []string{
	"school", "user", "classsection", "subject",
	"gradingscale", "gradingperiod", "studentenrollment", "grade", "attendance",
}

// syncSchoolContext - школа синхронизации: явный school_id из запроса
// (проверенный по БД) или школа запроса.
func syncSchoolContext(c *gin.Context) (*uint, bool) {
	if raw := c.Query("school_id"); raw != "" {
		var school models.School
		if err := config.DB.First(&school, raw).Error; err != nil {
			return nil, false
		}
		return &school.ID, true
	}
	return activeSchoolID(c), true
}

// SyncPullHandler выгружает все строки, изменённые после last_sync,
// сгруппированные по моделям.
func SyncPullHandler(c *gin.Context) {
	lastSyncStr := c.Query("last_sync")
	if lastSyncStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "last_sync parameter required"})
		return
	}
	lastSync, err := time.Parse(time.RFC3339, lastSyncStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid last_sync format"})
		return
	}

	school, ok := syncSchoolContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid school_id"})
		return
	}
	role := currentRole(c)

	data := gin.H{}
	for _, key := range syncOrder {
		ops := syncModels[key]

		// Школы и чужих пользователей видит только super_admin
		if key == "school" && role != models.RoleSuperAdmin {
			data[key] = []interface{}{}
			continue
		}
		if key == "user" && role != models.RoleSuperAdmin && school == nil {
			data[key] = []interface{}{}
			continue
		}

		rows, err := ops.pull(config.DB, lastSync, school)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка синхронизации: " + err.Error()})
			return
		}
		data[key] = rows
	}

	now := time.Now()
	meta := gin.H{
		"user_id":        currentUserID(c),
		"school_id":      nil,
		"last_sync":      now.Format(time.RFC3339),
		"sync_timestamp": now.UnixMilli(),
	}
	if school != nil {
		meta["school_id"] = *school
	}
	data["_meta"] = meta

	c.JSON(http.StatusOK, data)
}

// SyncPushHandler принимает пакет изменений клиента. Формат:
//
//	{"grades": [{"action": "create", "data": {...}}, ...]}
//
// Неизвестные модели пропускаются, конфликт решается в пользу более
// новой серверной строки.
func SyncPushHandler(c *gin.Context) {
	var payload map[string][]syncEntry
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	school := activeSchoolID(c)
	res := newPushResult()

	for key, entries := range payload {
		modelKey := strings.ToLower(strings.TrimRight(key, "s"))
		ops, ok := syncModels[modelKey]
		if !ok {
			continue
		}
		res.ensure(key)
		ops.push(c, key, entries, school, res)
	}

	c.JSON(http.StatusOK, res)
}
