package audit

import (
	"context"
	"testing"
	"time"

	"reportcard-crm/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openAuditDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subject{}, &models.SupportTicket{}, &models.ChangeLog{}))
	require.NoError(t, Register(db))
	return db
}

func lastEntry(t *testing.T, db *gorm.DB) models.ChangeLog {
	t.Helper()
	var entry models.ChangeLog
	require.NoError(t, db.Order("id desc").First(&entry).Error)
	return entry
}

func TestAuditCreate(t *testing.T) {
	db := openAuditDB(t)

	school := uint(7)
	ctx := WithActor(context.Background(), Actor{UserID: 3, SchoolID: &school})

	subject := models.Subject{Name: "Биология", SchoolID: 7}
	require.NoError(t, db.WithContext(ctx).Create(&subject).Error)

	entry := lastEntry(t, db)
	assert.Equal(t, "Subject", entry.Model)
	assert.Equal(t, models.ChangeCreate, entry.Action)
	assert.Equal(t, "1", entry.ObjectID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, uint(3), *entry.UserID)
	require.NotNil(t, entry.SchoolID)
	assert.Equal(t, uint(7), *entry.SchoolID)
	assert.Contains(t, string(entry.Data), "Биология")
}

func TestAuditUpdateAndDelete(t *testing.T) {
	db := openAuditDB(t)

	subject := models.Subject{Name: "География", SchoolID: 2}
	require.NoError(t, db.Create(&subject).Error)

	require.NoError(t, db.Model(&subject).Update("name", "Экономическая география").Error)
	entry := lastEntry(t, db)
	assert.Equal(t, models.ChangeUpdate, entry.Action)
	assert.Nil(t, entry.UserID)

	require.NoError(t, db.Delete(&subject).Error)
	entry = lastEntry(t, db)
	assert.Equal(t, models.ChangeDelete, entry.Action)

	var count int64
	db.Model(&models.ChangeLog{}).Where("model = ?", "Subject").Count(&count)
	assert.Equal(t, int64(3), count)
}

func TestAuditSkipsUntrackedModel(t *testing.T) {
	db := openAuditDB(t)

	ticket := models.SupportTicket{Title: "Не печатается табель", CreatedBy: 1, SchoolID: 1}
	require.NoError(t, db.Create(&ticket).Error)

	var count int64
	db.Model(&models.ChangeLog{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAuditNotifier(t *testing.T) {
	db := openAuditDB(t)

	var got []models.ChangeLog
	SetNotifier(func(e models.ChangeLog) { got = append(got, e) })
	t.Cleanup(func() { SetNotifier(nil) })

	require.NoError(t, db.Create(&models.Subject{Name: "Музыка", SchoolID: 1}).Error)
	require.Len(t, got, 1)
	assert.Equal(t, "Subject", got[0].Model)
}

func TestPrune(t *testing.T) {
	db := openAuditDB(t)

	old := models.ChangeLog{Model: "Grade", ObjectID: "1", Action: models.ChangeCreate}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("timestamp", time.Now().AddDate(0, 0, -120)).Error)

	fresh := models.ChangeLog{Model: "Grade", ObjectID: "2", Action: models.ChangeCreate}
	require.NoError(t, db.Create(&fresh).Error)

	removed, err := Prune(db, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var count int64
	db.Model(&models.ChangeLog{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
