package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scanx/internal/models"
	"scanx/internal/telemetry"
)

var (
	ErrNotFound = errors.New("not found")
)

type DeviceStore struct{ db *gorm.DB }

func NewDeviceStore(db *gorm.DB) *DeviceStore { return &DeviceStore{db: db} }

// DeviceUpsert: изменяемые поля устройства из отчёта агента.
type DeviceUpsert struct {
	SerialNo     string
	UserEmail    string
	ComputerName string
	OSType       string
	OSVersion    string
	AgentVersion string
	LastSeen     time.Time
	Status       string
}

// -------- запись (ingest) --------

// UpsertBySerial вставляет устройство или обновляет его по serial_no.
// Уникальность держит индекс, а не приложение.
func (s *DeviceStore) UpsertBySerial(ctx context.Context, in DeviceUpsert) (*models.Device, error) {
	seen := in.LastSeen
	d := models.Device{
		SerialNo:     in.SerialNo,
		UserEmail:    in.UserEmail,
		ComputerName: in.ComputerName,
		OSType:       in.OSType,
		OSVersion:    in.OSVersion,
		AgentVersion: in.AgentVersion,
		LastSeen:     &seen,
		Status:       in.Status,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "serial_no"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_email", "computer_name", "os_type", "os_version",
			"agent_version", "last_seen", "status", "updated_at",
		}),
	}).Create(&d).Error
	if err != nil {
		return nil, err
	}
	// при UPDATE драйверы по-разному отдают id — перечитываем
	return s.FindBySerial(ctx, in.SerialNo)
}

// FindBySerial: nil, nil если устройства нет.
func (s *DeviceStore) FindBySerial(ctx context.Context, serial string) (*models.Device, error) {
	var d models.Device
	err := s.db.WithContext(ctx).Where("serial_no = ?", serial).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// OwnsOtherDevice: закреплено ли за email устройство с другим серийником.
func (s *DeviceStore) OwnsOtherDevice(ctx context.Context, email, serial string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Device{}).
		Where("user_email = ? AND serial_no <> ?", email, serial).
		Count(&n).Error
	return n > 0, err
}

// AppendRecord добавляет строку истории категории (старые строки не трогаем).
func (s *DeviceStore) AppendRecord(ctx context.Context, c telemetry.Category, deviceID uint, ts time.Time, items []telemetry.Item) error {
	if !c.Valid() {
		return errors.New("unknown category: " + string(c))
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	rec := models.TelemetryRecord{
		DeviceID:  deviceID,
		Timestamp: ts,
		Data:      raw,
		HasError:  telemetry.HasErrors(items),
	}
	return s.db.WithContext(ctx).Table(c.Table()).Create(&rec).Error
}

// UpsertSummary перезаписывает сводку устройства целиком.
func (s *DeviceStore) UpsertSummary(ctx context.Context, sum *models.DeviceSummary) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_report", "system_info", "disk_encryption_info", "password_manager_info",
			"antivirus_info", "screen_lock_info", "apps_info", "updated_at",
		}),
	}).Create(sum).Error
}

// -------- чтение (dashboard) --------

func (s *DeviceStore) FindByID(ctx context.Context, id uint) (*models.Device, error) {
	var d models.Device
	err := s.db.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Summary: nil, nil если устройство ещё не отчитывалось.
func (s *DeviceStore) Summary(ctx context.Context, deviceID uint) (*models.DeviceSummary, error) {
	var sum models.DeviceSummary
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&sum).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *DeviceStore) Summaries(ctx context.Context, ids []uint) (map[uint]models.DeviceSummary, error) {
	out := make(map[uint]models.DeviceSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.DeviceSummary
	if err := s.db.WithContext(ctx).Where("device_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.DeviceID] = r
	}
	return out, nil
}

// Latest: самая свежая запись категории; nil, nil если записей нет.
func (s *DeviceStore) Latest(ctx context.Context, c telemetry.Category, deviceID uint) (*models.TelemetryRecord, error) {
	var rec models.TelemetryRecord
	err := s.db.WithContext(ctx).Table(c.Table()).
		Where("device_id = ?", deviceID).
		Order("timestamp desc, id desc").
		Limit(1).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LatestByDevice: последняя запись категории для каждого устройства из ids.
func (s *DeviceStore) LatestByDevice(ctx context.Context, c telemetry.Category, ids []uint) (map[uint]models.TelemetryRecord, error) {
	out := make(map[uint]models.TelemetryRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.TelemetryRecord
	err := s.db.WithContext(ctx).Table(c.Table()).
		Where("device_id IN ?", ids).
		Where("timestamp = (SELECT MAX(t2.timestamp) FROM "+c.Table()+" t2 WHERE t2.device_id = "+c.Table()+".device_id)").
		Order("id desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if _, ok := out[r.DeviceID]; !ok {
			out[r.DeviceID] = r
		}
	}
	return out, nil
}

// History: страница истории категории, новые сначала.
func (s *DeviceStore) History(ctx context.Context, c telemetry.Category, deviceID uint, offset, limit int) ([]models.TelemetryRecord, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Table(c.Table()).Where("device_id = ?", deviceID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.TelemetryRecord
	err := s.db.WithContext(ctx).Table(c.Table()).
		Where("device_id = ?", deviceID).
		Order("timestamp desc, id desc").
		Offset(offset).Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

// DeviceFilter: поиск/фильтр списка устройств. Limit <= 0 — без лимита.
type DeviceFilter struct {
	Search string
	OSType string
	Offset int
	Limit  int
}

func (s *DeviceStore) List(ctx context.Context, f DeviceFilter) ([]models.Device, int64, error) {
	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Device{})
		if term := strings.TrimSpace(f.Search); term != "" {
			like := containsPattern(term)
			q = q.Where("LOWER(serial_no) LIKE ? ESCAPE '!' OR LOWER(user_email) LIKE ? ESCAPE '!' OR LOWER(computer_name) LIKE ? ESCAPE '!'", like, like, like)
		}
		if os := strings.TrimSpace(f.OSType); os != "" {
			q = q.Where("os_type = ?", os)
		}
		return q
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := filtered().Order("last_seen desc").Order("created_at desc")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var rows []models.Device
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

type OSCount struct {
	OSType string `json:"os_type"`
	Count  int64  `json:"count"`
}

type DeviceStats struct {
	Total          int64     `json:"total"`
	Online         int64     `json:"online"`
	RecentActivity int64     `json:"recent_activity"`
	ByOS           []OSCount `json:"by_os"`
}

// RecentWindow: окно "недавней активности" на дашборде, уже чем OnlineWindow.
const RecentWindow = time.Hour

// Stats считает online по last_seen, а не по сохранённому статусу.
func (s *DeviceStore) Stats(ctx context.Context, now time.Time) (*DeviceStats, error) {
	db := s.db.WithContext(ctx)
	st := &DeviceStats{ByOS: []OSCount{}}
	if err := db.Model(&models.Device{}).Count(&st.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Device{}).
		Where("last_seen >= ?", now.Add(-telemetry.OnlineWindow)).
		Count(&st.Online).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Device{}).
		Where("last_seen >= ?", now.Add(-RecentWindow)).
		Count(&st.RecentActivity).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Device{}).
		Select("os_type, COUNT(*) AS count").
		Group("os_type").Order("os_type").
		Scan(&st.ByOS).Error; err != nil {
		return nil, err
	}
	return st, nil
}
