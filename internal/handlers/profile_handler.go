// reportcard-crm/internal/handlers/profile_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"reportcard-crm/config"
	"reportcard-crm/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type SchoolProfileInput struct {
	PrimaryColor   string `json:"primary_color" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondary_color" validate:"omitempty,hexcolor"`
	AccentColor    string `json:"accent_color" validate:"omitempty,hexcolor"`

	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Website string `json:"website" validate:"omitempty,url"`

	ReportHeader    string `json:"report_header"`
	ReportFooter    string `json:"report_footer"`
	ReportSignature string `json:"report_signature"`

	EnableAnalytics       *bool `json:"enable_analytics"`
	EnableSupportPortal   *bool `json:"enable_support_portal"`
	EnableCustomTemplates *bool `json:"enable_custom_templates"`

	DefaultReportTemplate string `json:"default_report_template"`
}

// getOrCreateProfile достаёт профиль активной школы, создавая его при первом обращении.
func getOrCreateProfile(c *gin.Context) (*models.SchoolProfile, bool) {
	school := activeSchoolID(c)
	if school == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Не выбрана активная школа"})
		return nil, false
	}

	var profile models.SchoolProfile
	err := config.DB.Where("school_id = ?", *school).First(&profile).Error
	if err != nil {
		profile = models.SchoolProfile{SchoolID: *school}
		if err := dbc(c).Create(&profile).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать профиль школы"})
			return nil, false
		}
	}
	return &profile, true
}

// GetSchoolProfileHandler возвращает брендирование активной школы.
func GetSchoolProfileHandler(c *gin.Context) {
	profile, ok := getOrCreateProfile(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateSchoolProfileHandler обновляет брендирование. Цвета проходят
// валидацию hexcolor, чтобы в PDF не попала мусорная строка.
func UpdateSchoolProfileHandler(c *gin.Context) {
	profile, ok := getOrCreateProfile(c)
	if !ok {
		return
	}

	var input SchoolProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validate.Struct(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ошибка валидации: " + err.Error()})
		return
	}

	if input.PrimaryColor != "" {
		profile.PrimaryColor = input.PrimaryColor
	}
	if input.SecondaryColor != "" {
		profile.SecondaryColor = input.SecondaryColor
	}
	if input.AccentColor != "" {
		profile.AccentColor = input.AccentColor
	}
	profile.Address = input.Address
	profile.Phone = input.Phone
	profile.Email = input.Email
	profile.Website = input.Website
	profile.ReportHeader = input.ReportHeader
	profile.ReportFooter = input.ReportFooter
	profile.ReportSignature = input.ReportSignature
	if input.EnableAnalytics != nil {
		profile.EnableAnalytics = input.EnableAnalytics
	}
	if input.EnableSupportPortal != nil {
		profile.EnableSupportPortal = input.EnableSupportPortal
	}
	if input.EnableCustomTemplates != nil {
		profile.EnableCustomTemplates = input.EnableCustomTemplates
	}
	if input.DefaultReportTemplate != "" {
		profile.DefaultReportTemplate = input.DefaultReportTemplate
	}

	if err := dbc(c).Save(profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить профиль: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UploadSchoolLogoHandler принимает логотип школы (multipart) и сохраняет
// его под случайным именем в MEDIA_DIR/school_logos.
func UploadSchoolLogoHandler(c *gin.Context) {
	profile, ok := getOrCreateProfile(c)
	if !ok {
		return
	}

	file, err := c.FormFile("logo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл логотипа не передан"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".svg", ".webp":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый формат логотипа"})
		return
	}

	dir := filepath.Join(config.MediaDir(), "school_logos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось подготовить каталог для загрузки"})
		return
	}

	fileName := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	dst := filepath.Join(dir, fileName)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сохранить файл: " + err.Error()})
		return
	}

	profile.LogoURL = "/media/school_logos/" + fileName
	if err := dbc(c).Save(profile).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Файл сохранён, но профиль обновить не удалось"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logo_url": profile.LogoURL})
}
