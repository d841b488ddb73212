// reportcard-crm/models/school_profile.go
package models

import "time"

// SchoolProfile - расширенный профиль школы для white-label брендирования:
// цвета, контакты, настройки табелей. Ровно один профиль на школу.
type SchoolProfile struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	SchoolID uint `json:"school_id" gorm:"uniqueIndex;not null"`

	LogoURL        string `json:"logo_url" gorm:"size:255"`
	PrimaryColor   string `json:"primary_color" gorm:"size:7;default:#667eea"`
	SecondaryColor string `json:"secondary_color" gorm:"size:7;default:#764ba2"`
	AccentColor    string `json:"accent_color" gorm:"size:7;default:#28a745"`

	Address string `json:"address"`
	Phone   string `json:"phone" gorm:"size:20"`
	Email   string `json:"email" gorm:"size:254"`
	Website string `json:"website" gorm:"size:200"`

	ReportHeader    string `json:"report_header" gorm:"size:200"`
	ReportFooter    string `json:"report_footer" gorm:"size:300"`
	ReportSignature string `json:"report_signature" gorm:"size:100"`

	EnableAnalytics       *bool `json:"enable_analytics" gorm:"default:true"`
	EnableSupportPortal   *bool `json:"enable_support_portal" gorm:"default:true"`
	EnableCustomTemplates *bool `json:"enable_custom_templates" gorm:"default:true"`

	DefaultReportTemplate string `json:"default_report_template" gorm:"size:50;default:default"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	School *School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}
