// reportcard-crm/internal/handlers/ticket_handler.go
package handlers

import (
	"net/http"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TicketInput struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	SchoolID    *uint  `json:"school_id"`
}

type TicketUpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Category    *string `json:"category"`
	AssignedTo  *uint   `json:"assigned_to"`
}

// scopeTickets: ученик и учитель видят только свои тикеты,
// admin - тикеты школы, super_admin - всё.
func scopeTickets(c *gin.Context, query *gorm.DB) *gorm.DB {
	role := currentRole(c)
	if role == models.RoleStudent || role == models.RoleTeacher {
		return query.Where("created_by = ?", currentUserID(c))
	}
	return scopeToSchool(c, query, "school_id")
}

func ListTicketsHandler(c *gin.Context) {
	query := scopeTickets(c, config.DB.Model(&models.SupportTicket{})).
		Preload("Creator").Preload("Assignee").
		Order("created_at desc")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var tickets []models.SupportTicket
	var totalRows int64
	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Find(&tickets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить тикеты"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, tickets, totalRows))
}

func GetTicketHandler(c *gin.Context) {
	var ticket models.SupportTicket
	if err := scopeTickets(c, config.DB.Model(&models.SupportTicket{})).
		Preload("Creator").Preload("Assignee").
		First(&ticket, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Тикет не найден"})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func CreateTicketHandler(c *gin.Context) {
	var input TicketInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Priority != "" && !models.ValidTicketPriority(input.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый приоритет"})
		return
	}

	schoolID, ok := resolveSchoolID(c, input.SchoolID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return
	}

	ticket := models.SupportTicket{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Priority:    input.Priority,
		Category:    input.Category,
		CreatedBy:   currentUserID(c),
		SchoolID:    schoolID,
	}
	if ticket.Priority == "" {
		ticket.Priority = models.PriorityMedium
	}
	ticket.Status = models.TicketOpen
	if err := dbc(c).Create(&ticket).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось создать тикет: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func UpdateTicketHandler(c *gin.Context) {
	var ticket models.SupportTicket
	if err := scopeTickets(c, config.DB.Model(&models.SupportTicket{})).
		First(&ticket, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Тикет не найден"})
		return
	}

	var input TicketUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := currentRole(c)
	staff := role == models.RoleAdmin || role == models.RoleSuperAdmin

	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = *input.Description
	}
	// Статус, приоритет и назначение меняет только персонал
	if staff {
		if input.Status != nil {
			if !models.ValidTicketStatus(*input.Status) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый статус"})
				return
			}
			ticket.Status = *input.Status
			if *input.Status == models.TicketResolved && ticket.ResolvedBy == nil {
				resolver := currentUserID(c)
				ticket.ResolvedBy = &resolver
			}
		}
		if input.Priority != nil {
			if !models.ValidTicketPriority(*input.Priority) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый приоритет"})
				return
			}
			ticket.Priority = *input.Priority
		}
		if input.AssignedTo != nil {
			// Назначать тикет можно только администратору
			var assignee models.User
			if err := config.DB.First(&assignee, *input.AssignedTo).Error; err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Назначаемый пользователь не найден"})
				return
			}
			if assignee.Role != models.RoleAdmin && assignee.Role != models.RoleSuperAdmin {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Тикет можно назначить только администратору"})
				return
			}
			if assignee.Role == models.RoleAdmin &&
				(assignee.SchoolID == nil || *assignee.SchoolID != ticket.SchoolID) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Назначаемый администратор из другой школы"})
				return
			}
			ticket.AssignedTo = input.AssignedTo
		}
	}
	if input.Category != nil {
		ticket.Category = *input.Category
	}

	if err := dbc(c).Save(&ticket).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не удалось обновить тикет: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func DeleteTicketHandler(c *gin.Context) {
	var ticket models.SupportTicket
	if err := scopeToSchool(c, config.DB, "school_id").First(&ticket, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Тикет не найден"})
		return
	}
	if err := dbc(c).Delete(&ticket).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить тикет: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Тикет удалён"})
}
