package handlers

import (
	"net/http"
	"testing"

	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTicketAssigneeMustBeAdmin(t *testing.T) {
	db := setupSyncDB(t)
	require.NoError(t, db.AutoMigrate(&models.SupportTicket{}))

	student := models.User{Username: "student1", Role: models.RoleStudent}
	require.NoError(t, db.Create(&student).Error)
	ticket := models.SupportTicket{Title: "Не открывается табель", CreatedBy: 1, SchoolID: 1}
	require.NoError(t, db.Create(&ticket).Error)

	school := uint(1)
	payload := gin.H{"assigned_to": student.ID}
	c, w := syncContext(t, http.MethodPut, "/api/tickets/1", payload, models.RoleAdmin, &school)
	c.Params = gin.Params{{Key: "id", Value: itoa(ticket.ID)}}
	UpdateTicketHandler(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var stored models.SupportTicket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	assert.Nil(t, stored.AssignedTo)
}

func TestUpdateTicketAssigneeSameSchoolAdmin(t *testing.T) {
	db := setupSyncDB(t)
	require.NoError(t, db.AutoMigrate(&models.SupportTicket{}))

	schoolOne := uint(1)
	admin := models.User{Username: "admin1", Role: models.RoleAdmin, SchoolID: &schoolOne}
	require.NoError(t, db.Create(&admin).Error)
	ticket := models.SupportTicket{Title: "Ошибка в оценках", CreatedBy: 1, SchoolID: 1}
	require.NoError(t, db.Create(&ticket).Error)

	payload := gin.H{"assigned_to": admin.ID}
	c, w := syncContext(t, http.MethodPut, "/api/tickets/1", payload, models.RoleAdmin, &schoolOne)
	c.Params = gin.Params{{Key: "id", Value: itoa(ticket.ID)}}
	UpdateTicketHandler(c)

	require.Equal(t, http.StatusOK, w.Code)
	var stored models.SupportTicket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, admin.ID, *stored.AssignedTo)
}

func TestUpdateTicketAssigneeForeignSchoolAdmin(t *testing.T) {
	db := setupSyncDB(t)
	require.NoError(t, db.AutoMigrate(&models.SupportTicket{}))

	schoolOne, schoolTwo := uint(1), uint(2)
	foreignAdmin := models.User{Username: "admin2", Role: models.RoleAdmin, SchoolID: &schoolTwo}
	require.NoError(t, db.Create(&foreignAdmin).Error)
	ticket := models.SupportTicket{Title: "Вопрос по шаблону", CreatedBy: 1, SchoolID: 1}
	require.NoError(t, db.Create(&ticket).Error)

	payload := gin.H{"assigned_to": foreignAdmin.ID}
	c, w := syncContext(t, http.MethodPut, "/api/tickets/1", payload, models.RoleAdmin, &schoolOne)
	c.Params = gin.Params{{Key: "id", Value: itoa(ticket.ID)}}
	UpdateTicketHandler(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var stored models.SupportTicket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	assert.Nil(t, stored.AssignedTo)
}

// Статус и назначение не меняются, если тикет правит его автор-ученик.
func TestUpdateTicketStudentCannotAssign(t *testing.T) {
	db := setupSyncDB(t)
	require.NoError(t, db.AutoMigrate(&models.SupportTicket{}))

	schoolOne := uint(1)
	admin := models.User{Username: "admin3", Role: models.RoleAdmin, SchoolID: &schoolOne}
	require.NoError(t, db.Create(&admin).Error)
	ticket := models.SupportTicket{Title: "Мой вопрос", CreatedBy: 42, SchoolID: 1}
	require.NoError(t, db.Create(&ticket).Error)

	payload := gin.H{"assigned_to": admin.ID, "status": models.TicketResolved}
	c, w := syncContext(t, http.MethodPut, "/api/tickets/1", payload, models.RoleStudent, &schoolOne)
	c.Params = gin.Params{{Key: "id", Value: itoa(ticket.ID)}}
	UpdateTicketHandler(c)

	require.Equal(t, http.StatusOK, w.Code)
	var stored models.SupportTicket
	require.NoError(t, db.First(&stored, ticket.ID).Error)
	assert.Nil(t, stored.AssignedTo)
	assert.Equal(t, models.TicketOpen, stored.Status)
}
