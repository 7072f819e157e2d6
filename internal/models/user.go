package models

import "time"

const (
	AccountTypeUser    = "user"
	AccountTypeService = "service"
)

// DirectoryUser: зеркало записи внешнего каталога пользователей.
type DirectoryUser struct {
	GID   uint   `gorm:"column:gid;primaryKey" json:"gid"`
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name  string `gorm:"size:255" json:"name"`
	// время создания учётки в каталоге, не время вставки строки
	CreatedAt   *time.Time `gorm:"column:created_at;autoCreateTime:false" json:"created_at"`
	AccountType string     `gorm:"size:16;not null;default:user" json:"account_type"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (DirectoryUser) TableName() string { return "users" }

// ValidAccountType: допустимы только user и service.
func ValidAccountType(s string) bool {
	return s == AccountTypeUser || s == AccountTypeService
}
