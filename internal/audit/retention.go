// reportcard-crm/internal/audit/retention.go
package audit

import (
	"log/slog"
	"time"

	"reportcard-crm/models"

	"gorm.io/gorm"
)

// Prune удаляет записи журнала старше retentionDays. Вызывается ночным
// cron-заданием, чтобы таблица аудита не росла бесконечно.
func Prune(db *gorm.DB, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	res := db.Where("timestamp < ?", cutoff).Delete(&models.ChangeLog{})
	if res.Error != nil {
		slog.Error("Очистка журнала изменений не удалась", "error", res.Error)
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		slog.Info("Журнал изменений очищен", "deleted", res.RowsAffected, "cutoff", cutoff.Format(time.RFC3339))
	}
	return res.RowsAffected, nil
}
