// reportcard-crm/models/school.go
package models

import "time"

// School - корень мультитенантности. Все бизнес-сущности привязаны ровно к одной школе.
type School struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}
