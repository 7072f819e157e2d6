// Package compliance собирает строки таблицы устройств для дашборда:
// владелец, статус безопасности и статус устройства на текущий момент.
package compliance

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scanx/internal/models"
	"scanx/internal/telemetry"
)

// OwnerName строит имя из локальной части email: "a.b@x.com" -> "A B".
func OwnerName(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	// Caser хранит состояние, на каждый вызов свой
	title := cases.Title(language.Und)
	parts := strings.Split(local, ".")
	out := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, title.String(p))
	}
	return strings.Join(out, " ")
}

type SecurityStatus struct {
	PasswordManager bool `json:"password_manager"`
	ScreenLock      bool `json:"screen_lock"`
	Antivirus       bool `json:"antivirus"`
	DiskEncryption  bool `json:"disk_encryption"`
}

// Row: строка /devices/table.
type Row struct {
	models.Device

	OwnerName      string         `json:"owner_name"`
	SecurityStatus SecurityStatus `json:"security_status"`

	SystemInfoData      json.RawMessage `json:"system_info_data,omitempty"`
	SystemInfoTimestamp *time.Time      `json:"system_info_timestamp,omitempty"`

	HasSystemInfo      bool       `json:"has_system_info"`
	HasPasswordManager bool       `json:"has_password_manager"`
	HasScreenLock      bool       `json:"has_screen_lock"`
	HasAntivirus       bool       `json:"has_antivirus"`
	HasDiskEncryption  bool       `json:"has_disk_encryption"`
	HasAppsInfo        bool       `json:"has_apps_info"`
	LastReport         *time.Time `json:"last_report,omitempty"`
}

// BuildRow объединяет устройство, его сводку и последнюю system_info.
// Сохранённый status игнорируется: считаем от last_report, иначе от last_seen.
func BuildRow(d models.Device, sum *models.DeviceSummary, sys *models.TelemetryRecord, now time.Time) Row {
	row := Row{Device: d, OwnerName: OwnerName(d.UserEmail)}

	ref := d.LastSeen
	if sum != nil {
		row.SecurityStatus = SecurityStatus{
			PasswordManager: sum.PasswordManagerInfo,
			ScreenLock:      sum.ScreenLockInfo,
			Antivirus:       sum.AntivirusInfo,
			DiskEncryption:  sum.DiskEncryptionInfo,
		}
		row.HasSystemInfo = sum.SystemInfo
		row.HasPasswordManager = sum.PasswordManagerInfo
		row.HasScreenLock = sum.ScreenLockInfo
		row.HasAntivirus = sum.AntivirusInfo
		row.HasDiskEncryption = sum.DiskEncryptionInfo
		row.HasAppsInfo = sum.AppsInfo
		row.LastReport = sum.LastReport
		if sum.LastReport != nil {
			ref = sum.LastReport
		}
	}
	row.Status = telemetry.DeviceStatus(ref, now)

	if sys != nil {
		row.SystemInfoData = json.RawMessage(sys.Data)
		ts := sys.Timestamp
		row.SystemInfoTimestamp = &ts
		if row.ComputerName == "" {
			row.ComputerName = hostname(sys.Data)
		}
	}
	return row
}

// hostname берёт имя машины из первой строки system_info.
func hostname(raw []byte) string {
	var items []telemetry.Item
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return ""
	}
	for _, key := range []string{"computer_name", "hostname"} {
		if s, ok := items[0][key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
