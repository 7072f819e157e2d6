// Package ingest принимает отчёты агентов: проверка, привязка устройства,
// история по категориям и сводка соответствия.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"scanx/internal/logs"
	"scanx/internal/models"
	"scanx/internal/repo"
	"scanx/internal/telemetry"
	"scanx/internal/tz"
)

// MaxClockSkew: насколько отметка агента может опережать время получения.
const MaxClockSkew = 5 * time.Minute

const defaultOSVersion = "unknown"

// Report: тело POST /agent/report.
type Report struct {
	User         string                      `json:"user"`
	SerialNo     string                      `json:"serial_no"`
	OSType       string                      `json:"os_type"`
	OSVersion    string                      `json:"os_version"`
	ComputerName string                      `json:"computer_name"`
	Version      string                      `json:"version"`
	AgentVersion string                      `json:"agent_version"`
	Timestamp    string                      `json:"timestamp"`
	Data         map[string][]telemetry.Item `json:"data"`
}

// Result: ответ на принятый отчёт.
type Result struct {
	Message    string          `json:"message"`
	DeviceID   uint            `json:"device_id"`
	Timestamp  string          `json:"timestamp"`
	Categories map[string]bool `json:"categories"`
}

// Error: отказ с HTTP-статусом; отказ до записи ничего не пишет.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func reject(status int, msg string) *Error { return &Error{Status: status, Message: msg} }

type DeviceStore interface {
	FindBySerial(ctx context.Context, serial string) (*models.Device, error)
	OwnsOtherDevice(ctx context.Context, email, serial string) (bool, error)
	UpsertBySerial(ctx context.Context, in repo.DeviceUpsert) (*models.Device, error)
	AppendRecord(ctx context.Context, c telemetry.Category, deviceID uint, ts time.Time, items []telemetry.Item) error
	UpsertSummary(ctx context.Context, sum *models.DeviceSummary) error
}

type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.DirectoryUser, error)
}

type Service struct {
	devices DeviceStore
	users   UserLookup
	now     func() time.Time
}

func NewService(devices DeviceStore, users UserLookup) *Service {
	return &Service{devices: devices, users: users, now: tz.Now}
}

// Ingest сохраняет отчёт. Запись не транзакционна: упавшая категория
// логируется и получает false в сводке, остальные пишутся дальше.
func (s *Service) Ingest(ctx context.Context, rep Report) (*Result, error) {
	rep.User = strings.TrimSpace(rep.User)
	rep.SerialNo = strings.TrimSpace(rep.SerialNo)
	rep.OSType = strings.TrimSpace(rep.OSType)
	if rep.User == "" || rep.SerialNo == "" || rep.OSType == "" {
		return nil, reject(http.StatusBadRequest, "Missing required fields: user, serial_no, os_type")
	}

	log := logs.With("ingest").WithFields(logrus.Fields{
		"serial_no": rep.SerialNo,
		"user":      rep.User,
	})

	known, err := s.devices.FindBySerial(ctx, rep.SerialNo)
	if err != nil {
		return nil, fmt.Errorf("find device: %w", err)
	}
	if known == nil {
		if err := s.checkFirstSight(ctx, rep.User, rep.SerialNo); err != nil {
			return nil, err
		}
	}

	received := s.now()
	ts := reportTime(rep.Timestamp, received)

	osVersion := strings.TrimSpace(rep.OSVersion)
	if osVersion == "" {
		osVersion = defaultOSVersion
	}
	agentVersion := rep.AgentVersion
	if agentVersion == "" {
		agentVersion = rep.Version
	}

	dev, err := s.devices.UpsertBySerial(ctx, repo.DeviceUpsert{
		SerialNo:     rep.SerialNo,
		UserEmail:    rep.User,
		ComputerName: rep.ComputerName,
		OSType:       rep.OSType,
		OSVersion:    osVersion,
		AgentVersion: agentVersion,
		LastSeen:     ts,
		Status:       telemetry.DeviceStatus(&ts, received),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert device: %w", err)
	}
	log = log.WithField("device_id", dev.ID)

	flags := make(map[telemetry.Category]bool, len(telemetry.All))
	for _, name := range sortedKeys(rep.Data) {
		c, ok := telemetry.Parse(name)
		if !ok {
			log.WithField("category", name).Debug("unknown category skipped")
			continue
		}
		items := rep.Data[name]
		if len(items) == 0 {
			continue
		}
		if err := s.devices.AppendRecord(ctx, c, dev.ID, ts, items); err != nil {
			log.WithError(err).WithField("category", name).Error("store category failed")
			continue
		}
		flags[c] = telemetry.Compliant(c, items)
	}

	sum := &models.DeviceSummary{
		DeviceID:            dev.ID,
		LastReport:          &ts,
		SystemInfo:          flags[telemetry.SystemInfo],
		DiskEncryptionInfo:  flags[telemetry.DiskEncryptionInfo],
		PasswordManagerInfo: flags[telemetry.PasswordManagerInfo],
		AntivirusInfo:       flags[telemetry.AntivirusInfo],
		ScreenLockInfo:      flags[telemetry.ScreenLockInfo],
		AppsInfo:            flags[telemetry.AppsInfo],
	}
	if err := s.devices.UpsertSummary(ctx, sum); err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}

	out := &Result{
		Message:    "Agent data received successfully",
		DeviceID:   dev.ID,
		Timestamp:  tz.Format(ts),
		Categories: make(map[string]bool, len(telemetry.All)),
	}
	for _, c := range telemetry.All {
		out.Categories[c.String()] = flags[c]
	}
	log.WithField("categories", len(flags)).Info("report ingested")
	return out, nil
}

// checkFirstSight: привязка нового серийника к пользователю каталога.
func (s *Service) checkFirstSight(ctx context.Context, email, serial string) error {
	other, err := s.devices.OwnsOtherDevice(ctx, email, serial)
	if err != nil {
		return fmt.Errorf("check ownership: %w", err)
	}
	if other {
		return reject(http.StatusConflict, "User already has a registered device")
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		return reject(http.StatusNotFound, "User not found in directory")
	}
	if u.AccountType == models.AccountTypeService {
		return reject(http.StatusUnauthorized, "Service accounts cannot register devices")
	}
	return nil
}

// reportTime приводит отметку агента к канонической зоне. Пустая,
// нечитаемая или опережающая больше MaxClockSkew заменяется временем получения.
func reportTime(raw string, received time.Time) time.Time {
	ts := tz.Normalize(raw, received)
	if ts.After(received.Add(MaxClockSkew)) {
		return tz.In(received)
	}
	return ts
}

func sortedKeys(m map[string][]telemetry.Item) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
