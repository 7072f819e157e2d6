package repo

import (
	"context"
	"testing"
	"time"

	"scanx/internal/db/dbtest"
	"scanx/internal/models"
	"scanx/internal/telemetry"
	"scanx/internal/tz"
)

func upsert(t *testing.T, s *DeviceStore, serial, email, os string, seen time.Time) *models.Device {
	t.Helper()
	d, err := s.UpsertBySerial(context.Background(), DeviceUpsert{
		SerialNo:     serial,
		UserEmail:    email,
		ComputerName: "host-" + serial,
		OSType:       os,
		OSVersion:    "14.1",
		AgentVersion: "1.0.0",
		LastSeen:     seen,
		Status:       telemetry.StatusOnline,
	})
	if err != nil {
		t.Fatalf("UpsertBySerial: %v", err)
	}
	return d
}

func TestDeviceStore_UpsertBySerialUpdatesInPlace(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	now := tz.Now()

	first := upsert(t, s, "S1", "a.b@x.com", "darwin", now.Add(-time.Hour))
	second, err := s.UpsertBySerial(ctx, DeviceUpsert{
		SerialNo: "S1", UserEmail: "c.d@x.com", ComputerName: "renamed",
		OSType: "darwin", OSVersion: "15.0", AgentVersion: "1.1.0",
		LastSeen: now, Status: telemetry.StatusOnline,
	})
	if err != nil {
		t.Fatalf("UpsertBySerial: %v", err)
	}
	if first.ID == 0 || second.ID != first.ID {
		t.Fatalf("ids: first=%d second=%d, want equal non-zero", first.ID, second.ID)
	}
	if second.UserEmail != "c.d@x.com" || second.ComputerName != "renamed" || second.OSVersion != "15.0" || second.AgentVersion != "1.1.0" {
		t.Errorf("mutable fields not updated: %+v", second)
	}
	_, total, err := s.List(ctx, DeviceFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("devices = %d, want 1", total)
	}
}

func TestDeviceStore_FindBySerialMissing(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	d, err := s.FindBySerial(context.Background(), "nope")
	if err != nil || d != nil {
		t.Fatalf("FindBySerial = %v, %v; want nil, nil", d, err)
	}
	if _, err := s.FindByID(context.Background(), 42); err != ErrNotFound {
		t.Errorf("FindByID: want ErrNotFound, got %v", err)
	}
}

func TestDeviceStore_OwnsOtherDevice(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	upsert(t, s, "S1", "a@x.com", "darwin", tz.Now())

	other, err := s.OwnsOtherDevice(ctx, "a@x.com", "S2")
	if err != nil || !other {
		t.Errorf("S2 for a@x.com: got %v, %v; want true", other, err)
	}
	same, err := s.OwnsOtherDevice(ctx, "a@x.com", "S1")
	if err != nil || same {
		t.Errorf("S1 for a@x.com: got %v, %v; want false", same, err)
	}
}

func TestDeviceStore_RecordsAreAppendOnly(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	d := upsert(t, s, "S1", "a@x.com", "darwin", tz.Now())
	base := tz.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		items := []telemetry.Item{{"disk_encryption": "true", "n": i}}
		if err := s.AppendRecord(ctx, telemetry.DiskEncryptionInfo, d.ID, base.Add(time.Duration(i)*time.Minute), items); err != nil {
			t.Fatalf("AppendRecord: %v", err)
		}
	}
	errItems := []telemetry.Item{{"status": "failed to execute query"}}
	if err := s.AppendRecord(ctx, telemetry.DiskEncryptionInfo, d.ID, base.Add(10*time.Minute), errItems); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}

	rows, total, err := s.History(ctx, telemetry.DiskEncryptionInfo, d.ID, 0, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if total != 4 || len(rows) != 2 {
		t.Fatalf("total=%d rows=%d, want 4 and 2", total, len(rows))
	}
	if !rows[0].HasError {
		t.Error("newest row should carry has_error")
	}
	if !rows[0].Timestamp.After(rows[1].Timestamp) {
		t.Error("history must be newest first")
	}

	latest, err := s.Latest(ctx, telemetry.DiskEncryptionInfo, d.ID)
	if err != nil || latest == nil {
		t.Fatalf("Latest: %v, %v", latest, err)
	}
	if latest.ID != rows[0].ID {
		t.Errorf("Latest id = %d, want %d", latest.ID, rows[0].ID)
	}

	none, err := s.Latest(ctx, telemetry.AppsInfo, d.ID)
	if err != nil || none != nil {
		t.Errorf("Latest apps_info = %v, %v; want nil, nil", none, err)
	}
}

func TestDeviceStore_AppendRecordRejectsUnknownCategory(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	err := s.AppendRecord(context.Background(), telemetry.Category("admins"), 1, tz.Now(), []telemetry.Item{{}})
	if err == nil {
		t.Fatal("want error for unknown category")
	}
}

func TestDeviceStore_UpsertSummaryOverwrites(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	d := upsert(t, s, "S1", "a@x.com", "darwin", tz.Now())
	ts := tz.Now()

	if err := s.UpsertSummary(ctx, &models.DeviceSummary{DeviceID: d.ID, LastReport: &ts, ScreenLockInfo: true, AppsInfo: true}); err != nil {
		t.Fatalf("UpsertSummary: %v", err)
	}
	later := ts.Add(time.Minute)
	if err := s.UpsertSummary(ctx, &models.DeviceSummary{DeviceID: d.ID, LastReport: &later, AntivirusInfo: true}); err != nil {
		t.Fatalf("UpsertSummary: %v", err)
	}
	sum, err := s.Summary(ctx, d.ID)
	if err != nil || sum == nil {
		t.Fatalf("Summary: %v, %v", sum, err)
	}
	if sum.ScreenLockInfo || sum.AppsInfo || !sum.AntivirusInfo {
		t.Errorf("summary not overwritten: %+v", sum)
	}
	if sum.LastReport == nil || !sum.LastReport.Equal(later) {
		t.Errorf("last_report = %v, want %v", sum.LastReport, later)
	}
	all, err := s.Summaries(ctx, []uint{d.ID})
	if err != nil || len(all) != 1 {
		t.Errorf("Summaries = %v, %v; want one row", all, err)
	}
}

func TestDeviceStore_ListFilters(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	now := tz.Now()
	upsert(t, s, "MAC-1", "anna.ivanova@x.com", "darwin", now)
	upsert(t, s, "WIN-1", "bob@x.com", "windows", now.Add(-time.Hour))
	upsert(t, s, "WIN-2", "carl@x.com", "windows", now.Add(-2*time.Hour))

	rows, total, err := s.List(ctx, DeviceFilter{Search: "ANNA"})
	if err != nil || total != 1 || rows[0].SerialNo != "MAC-1" {
		t.Errorf("search by email: %v rows, total %d, err %v", len(rows), total, err)
	}
	rows, total, err = s.List(ctx, DeviceFilter{Search: "host-win"})
	if err != nil || total != 2 {
		t.Errorf("search by computer name: total %d, err %v", total, err)
	}
	rows, total, err = s.List(ctx, DeviceFilter{OSType: "windows", Limit: 1})
	if err != nil || total != 2 || len(rows) != 1 || rows[0].SerialNo != "WIN-1" {
		t.Errorf("os filter page: rows=%+v total=%d err=%v", rows, total, err)
	}
}

func TestDeviceStore_ListSearchWildcardsAreLiteral(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	now := tz.Now()
	upsert(t, s, "A_B", "one@x.com", "darwin", now)
	upsert(t, s, "AXB", "two@x.com", "darwin", now)
	upsert(t, s, "C%D", "three@x.com", "darwin", now)
	upsert(t, s, "C!D", "four@x.com", "darwin", now)

	cases := []struct {
		term string
		want string
	}{
		{"a_b", "A_B"},
		{"c%d", "C%D"},
		{"c!d", "C!D"},
	}
	for _, tc := range cases {
		rows, total, err := s.List(ctx, DeviceFilter{Search: tc.term})
		if err != nil || total != 1 || len(rows) != 1 || rows[0].SerialNo != tc.want {
			t.Errorf("search %q: rows=%+v total=%d err=%v", tc.term, rows, total, err)
		}
	}
}

func TestDeviceStore_LatestByDevice(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	now := tz.Now()
	a := upsert(t, s, "A", "a@x.com", "darwin", now)
	b := upsert(t, s, "B", "b@x.com", "darwin", now)

	_ = s.AppendRecord(ctx, telemetry.SystemInfo, a.ID, now.Add(-time.Hour), []telemetry.Item{{"hostname": "old"}})
	_ = s.AppendRecord(ctx, telemetry.SystemInfo, a.ID, now, []telemetry.Item{{"hostname": "new"}})

	got, err := s.LatestByDevice(ctx, telemetry.SystemInfo, []uint{a.ID, b.ID})
	if err != nil {
		t.Fatalf("LatestByDevice: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if string(got[a.ID].Data) != `[{"hostname":"new"}]` {
		t.Errorf("data = %s", got[a.ID].Data)
	}
}

func TestDeviceStore_Stats(t *testing.T) {
	s := NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	now := tz.Now()
	upsert(t, s, "A", "a@x.com", "darwin", now.Add(-30*time.Minute))
	upsert(t, s, "B", "b@x.com", "windows", now.Add(-48*time.Hour))
	upsert(t, s, "C", "c@x.com", "windows", now.Add(-2*time.Hour))

	st, err := s.Stats(ctx, now)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	// C online (2h < 24h), но вне окна недавней активности (1h)
	if st.Total != 3 || st.Online != 2 || st.RecentActivity != 1 {
		t.Errorf("stats = %+v", st)
	}
	if len(st.ByOS) != 2 || st.ByOS[0].OSType != "darwin" || st.ByOS[1].Count != 2 {
		t.Errorf("by_os = %+v", st.ByOS)
	}
}
