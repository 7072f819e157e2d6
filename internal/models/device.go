package models

import (
	"time"

	"gorm.io/datatypes"
)

type Device struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserEmail    string     `gorm:"index;size:255;not null" json:"user_email"`
	SerialNo     string     `gorm:"uniqueIndex;size:255;not null" json:"serial_no"`
	ComputerName string     `gorm:"index;size:255" json:"computer_name"`
	OSType       string     `gorm:"index;size:50;not null" json:"os_type"`
	OSVersion    string     `gorm:"size:100" json:"os_version"`
	AgentVersion string     `gorm:"size:50" json:"agent_version"`
	LastSeen     *time.Time `gorm:"index" json:"last_seen"`
	// статус на момент последнего отчёта; для выдачи пересчитывается
	Status string `gorm:"size:16;default:unknown" json:"status"`
}

// DeviceSummary: последняя сводка соответствия, одна строка на устройство.
type DeviceSummary struct {
	DeviceID   uint       `gorm:"primaryKey;autoIncrement:false" json:"device_id"`
	LastReport *time.Time `gorm:"index" json:"last_report"`

	SystemInfo          bool `json:"system_info"`
	DiskEncryptionInfo  bool `json:"disk_encryption_info"`
	PasswordManagerInfo bool `json:"password_manager_info"`
	AntivirusInfo       bool `json:"antivirus_info"`
	ScreenLockInfo      bool `json:"screen_lock_info"`
	AppsInfo            bool `json:"apps_info"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DeviceSummary) TableName() string { return "device_summary" }

// TelemetryRecord: строка истории одной категории. Таблица выбирается
// по категории (db.Table(category.Table())), схема у всех общая.
type TelemetryRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	DeviceID  uint           `gorm:"not null" json:"device_id"`
	Timestamp time.Time      `gorm:"not null" json:"timestamp"`
	Data      datatypes.JSON `json:"data"`
	HasError  bool           `json:"has_error"`
	CreatedAt time.Time      `json:"created_at"`
}
