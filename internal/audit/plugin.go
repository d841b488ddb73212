// reportcard-crm/internal/audit/plugin.go
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"strconv"

	"reportcard-crm/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Отслеживаемые модели - по именам структур. ChangeLog сюда не входит,
// иначе запись журнала породила бы новую запись журнала.
var tracked = map[string]bool{
	"School":            true,
	"User":              true,
	"ClassSection":      true,
	"Subject":           true,
	"GradingScale":      true,
	"GradingPeriod":     true,
	"StudentEnrollment": true,
	"Grade":             true,
	"Attendance":        true,
	"UserApplication":   true,
}

// Actor - кто выполняет запрос. Кладётся в context тенант-middleware
// и подхватывается колбэками при записи в журнал.
type Actor struct {
	UserID   uint
	SchoolID *uint
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}

// notify вызывается после записи каждой строки журнала. Сюда подключается
// websocket-хаб, чтобы админы видели изменения вживую.
var notify func(models.ChangeLog)

func SetNotifier(fn func(models.ChangeLog)) { notify = fn }

// Register вешает колбэки аудита на create/update/delete.
// Аналог сигналов post_save/post_delete: хендлеры ничего не знают о журнале.
func Register(db *gorm.DB) error {
	if err := db.Callback().Create().After("gorm:create").Register("audit:after_create", func(tx *gorm.DB) {
		record(tx, models.ChangeCreate)
	}); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("audit:after_update", func(tx *gorm.DB) {
		record(tx, models.ChangeUpdate)
	}); err != nil {
		return err
	}
	return db.Callback().Delete().After("gorm:delete").Register("audit:after_delete", func(tx *gorm.DB) {
		record(tx, models.ChangeDelete)
	})
}

func record(db *gorm.DB, action string) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	if !tracked[db.Statement.Schema.Name] {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			logOne(db, action, rv.Index(i))
		}
	case reflect.Struct:
		logOne(db, action, rv)
	}
}

func logOne(db *gorm.DB, action string, rv reflect.Value) {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return
		}
		rv = rv.Elem()
	}

	idField := rv.FieldByName("ID")
	if !idField.IsValid() || idField.Uint() == 0 {
		return
	}

	data, err := json.Marshal(rv.Interface())
	if err != nil {
		data = []byte("{}")
	}

	entry := models.ChangeLog{
		Model:    db.Statement.Schema.Name,
		ObjectID: strconv.FormatUint(idField.Uint(), 10),
		Action:   action,
		Data:     datatypes.JSON(data),
		SchoolID: schoolOf(rv),
	}
	if actor, ok := ActorFrom(db.Statement.Context); ok {
		uid := actor.UserID
		entry.UserID = &uid
	}

	// Ошибка записи журнала не должна ронять бизнес-операцию
	session := db.Session(&gorm.Session{NewDB: true, SkipHooks: true})
	if err := session.Create(&entry).Error; err != nil {
		slog.Error("Не удалось записать изменение в журнал", "model", entry.Model, "error", err)
		return
	}
	if notify != nil {
		notify(entry)
	}
}

func schoolOf(rv reflect.Value) *uint {
	f := rv.FieldByName("SchoolID")
	if !f.IsValid() {
		return nil
	}
	switch f.Kind() {
	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		id := uint(f.Uint())
		if id == 0 {
			return nil
		}
		return &id
	case reflect.Ptr:
		if f.IsNil() {
			return nil
		}
		id := uint(f.Elem().Uint())
		return &id
	}
	return nil
}
