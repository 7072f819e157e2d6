package compliance

import (
	"testing"
	"time"

	"scanx/internal/models"
	"scanx/internal/telemetry"
	"scanx/internal/tz"
)

func TestOwnerName(t *testing.T) {
	cases := map[string]string{
		"a.b@x.com":          "A B",
		"anna.ivanova@x.com": "Anna Ivanova",
		"bob@x.com":          "Bob",
		"JOHN.DOE@x.com":     "John Doe",
		"a..b@x.com":         "A B",
		"noatsign":           "Noatsign",
	}
	for in, want := range cases {
		if got := OwnerName(in); got != want {
			t.Errorf("OwnerName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildRow_StatusFromLastReport(t *testing.T) {
	now := time.Date(2024, 3, 2, 12, 0, 0, 0, tz.Location)
	stale := now.Add(-72 * time.Hour)
	fresh := now.Add(-time.Hour)

	d := models.Device{ID: 1, UserEmail: "a.b@x.com", LastSeen: &stale, Status: telemetry.StatusOffline}
	sum := &models.DeviceSummary{DeviceID: 1, LastReport: &fresh, ScreenLockInfo: true, AppsInfo: true}

	row := BuildRow(d, sum, nil, now)
	if row.Status != telemetry.StatusOnline {
		t.Errorf("status = %q, want online", row.Status)
	}
	if row.OwnerName != "A B" {
		t.Errorf("owner = %q", row.OwnerName)
	}
	if !row.SecurityStatus.ScreenLock || row.SecurityStatus.Antivirus {
		t.Errorf("security = %+v", row.SecurityStatus)
	}
	if !row.HasAppsInfo || row.HasSystemInfo {
		t.Errorf("flags: apps=%v system=%v", row.HasAppsInfo, row.HasSystemInfo)
	}
}

func TestBuildRow_WithoutSummary(t *testing.T) {
	now := tz.Now()
	d := models.Device{ID: 1, UserEmail: "a@x.com", Status: telemetry.StatusOnline}
	if row := BuildRow(d, nil, nil, now); row.Status != telemetry.StatusUnknown {
		t.Errorf("status = %q, want unknown", row.Status)
	}

	seen := now.Add(-25 * time.Hour)
	d.LastSeen = &seen
	if row := BuildRow(d, nil, nil, now); row.Status != telemetry.StatusOffline {
		t.Errorf("status = %q, want offline", row.Status)
	}
}

func TestBuildRow_SystemInfo(t *testing.T) {
	now := tz.Now()
	sys := &models.TelemetryRecord{
		Timestamp: now,
		Data:      []byte(`[{"hostname":"abs-mac","cpu_brand":"M2"}]`),
	}
	row := BuildRow(models.Device{UserEmail: "a@x.com"}, nil, sys, now)
	if row.ComputerName != "abs-mac" {
		t.Errorf("computer_name = %q", row.ComputerName)
	}
	if row.SystemInfoTimestamp == nil || string(row.SystemInfoData) == "" {
		t.Errorf("system info not attached: %+v", row)
	}
}
