// reportcard-crm/models/changelog.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Действия аудита.
const (
	ChangeCreate = "create"
	ChangeUpdate = "update"
	ChangeDelete = "delete"
)

// ChangeLog - журнал изменений отслеживаемых сущностей. Записи создаются
// автоматически колбэками GORM (см. internal/audit), вручную их никто не пишет.
type ChangeLog struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Model     string         `json:"model" gorm:"size:100;index"`
	ObjectID  string         `json:"object_id" gorm:"size:100;index"`
	Action    string         `json:"action" gorm:"size:10;index"`
	Data      datatypes.JSON `json:"data"`
	Timestamp time.Time      `json:"timestamp" gorm:"autoCreateTime;index"`
	UserID    *uint          `json:"user_id"`
	SchoolID  *uint          `json:"school_id" gorm:"index"`
}
