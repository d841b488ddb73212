// reportcard-crm/models/support_ticket.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы и приоритеты тикетов поддержки.
const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// SupportTicket - обращение пользователя в поддержку школы.
type SupportTicket struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Description string     `json:"description"`
	Status      string     `json:"status" gorm:"size:20;default:open;index:idx_ticket_status_priority;index:idx_ticket_school_status,priority:2"`
	Priority    string     `json:"priority" gorm:"size:10;default:medium;index:idx_ticket_status_priority,priority:2"`
	Category    string     `json:"category" gorm:"size:100"`
	CreatedBy   uint       `json:"created_by" gorm:"index;not null"`
	AssignedTo  *uint      `json:"assigned_to" gorm:"index"`
	SchoolID    uint       `json:"school_id" gorm:"index:idx_ticket_school_status,priority:1"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"index"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	ResolvedBy  *uint      `json:"resolved_by"`

	Creator  *User `json:"creator,omitempty" gorm:"foreignKey:CreatedBy"`
	Assignee *User `json:"assignee,omitempty" gorm:"foreignKey:AssignedTo"`
}

// BeforeSave поддерживает инвариант: resolved_at выставлен тогда и только
// тогда, когда тикет в статусе resolved.
func (t *SupportTicket) BeforeSave(tx *gorm.DB) error {
	if t.Status == TicketResolved {
		if t.ResolvedAt == nil {
			now := time.Now()
			t.ResolvedAt = &now
		}
	} else {
		t.ResolvedAt = nil
	}
	return nil
}

// ValidTicketStatus проверяет статус тикета.
func ValidTicketStatus(status string) bool {
	switch status {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// ValidTicketPriority проверяет приоритет тикета.
func ValidTicketPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
