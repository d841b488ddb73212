// reportcard-crm/models/user.go
package models

import (
	"strings"
	"time"
)

// Роли пользователей. Порядок важен для проверок "роль или выше" в middleware.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleStudent    = "student"
)

// User представляет пользователя системы. SchoolID - nullable, так как
// super_admin не принадлежит ни одной школе.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:254"`
	FirstName    string    `json:"first_name" gorm:"size:150"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	Role         string    `json:"role" gorm:"size:20;default:student;index"`
	SchoolID     *uint     `json:"school_id" gorm:"index"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"index"`

	School *School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}

// FullName собирает отображаемое имя, при пустых полях возвращает username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// IsStaff - true для ролей, которым доступны административные операции школы.
func (u *User) IsStaff() bool {
	return u.Role == RoleSuperAdmin || u.Role == RoleAdmin || u.Role == RoleTeacher
}
