// reportcard-crm/models/application.go
package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Статусы заявок на регистрацию.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

var ErrApplicationReviewed = errors.New("заявка уже рассмотрена")

// UserApplication - заявка на создание учётной записи. Пользователь появляется
// в системе только после одобрения заявки администратором.
type UserApplication struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:254"`
	FirstName    string    `json:"first_name" gorm:"size:150"`
	LastName     string    `json:"last_name" gorm:"size:150"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	Role         string    `json:"role" gorm:"size:20;index"`
	SchoolID     *uint     `json:"school_id" gorm:"index"`
	Status       string    `json:"status" gorm:"size:20;default:pending;index"`
	SubmittedBy  *uint     `json:"submitted_by" gorm:"index"`
	ReviewedBy   *uint     `json:"reviewed_by" gorm:"index"`
	ReviewNotes  string    `json:"review_notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"index"`

	School *School `json:"school,omitempty" gorm:"foreignKey:SchoolID"`
}

// Approve одобряет заявку и создаёт пользователя в одной транзакции.
func (a *UserApplication) Approve(db *gorm.DB, reviewerID uint) (*User, error) {
	if a.Status != ApplicationPending {
		return nil, ErrApplicationReviewed
	}

	user := &User{
		Username:     a.Username,
		Email:        a.Email,
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		SchoolID:     a.SchoolID,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		a.Status = ApplicationApproved
		a.ReviewedBy = &reviewerID
		return tx.Save(a).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Reject отклоняет заявку с комментарием проверяющего.
func (a *UserApplication) Reject(db *gorm.DB, reviewerID uint, notes string) error {
	if a.Status != ApplicationPending {
		return ErrApplicationReviewed
	}
	a.Status = ApplicationRejected
	a.ReviewedBy = &reviewerID
	a.ReviewNotes = notes
	return db.Save(a).Error
}
