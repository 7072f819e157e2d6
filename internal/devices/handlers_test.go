package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"scanx/internal/db/dbtest"
	"scanx/internal/models"
	"scanx/internal/repo"
	"scanx/internal/telemetry"
	"scanx/internal/tz"
)

func open(next http.Handler) http.Handler { return next }

func newRouter(store Store) *mux.Router {
	r := mux.NewRouter()
	RegisterRoutes(r, NewHandler(store), open)
	return r
}

func get(t *testing.T, r http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	if out != nil && rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec.Code
}

type seeded struct {
	store *repo.DeviceStore
	fresh *models.Device
	stale *models.Device
}

func seed(t *testing.T) seeded {
	t.Helper()
	s := repo.NewDeviceStore(dbtest.Open(t))
	ctx := context.Background()
	now := tz.Now()
	mk := func(serial, email, os string, seen time.Time, status string) *models.Device {
		d, err := s.UpsertBySerial(ctx, repo.DeviceUpsert{
			SerialNo: serial, UserEmail: email, OSType: os, LastSeen: seen, Status: status,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", serial, err)
		}
		return d
	}
	fresh := mk("MAC-1", "anna.ivanova@x.com", "darwin", now.Add(-30*time.Minute), telemetry.StatusOnline)
	// сохранённый статус намеренно устарел
	stale := mk("WIN-1", "bob@x.com", "windows", now.Add(-48*time.Hour), telemetry.StatusOnline)

	for i := 0; i < 5; i++ {
		items := []telemetry.Item{{"antivirus": "defender", "n": i}}
		if err := s.AppendRecord(ctx, telemetry.AntivirusInfo, fresh.ID, now.Add(time.Duration(i-10)*time.Minute), items); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	_ = s.AppendRecord(ctx, telemetry.SystemInfo, fresh.ID, now.Add(-time.Hour), []telemetry.Item{{"hostname": "anna-mbp"}})
	last := now.Add(-time.Hour)
	_ = s.UpsertSummary(ctx, &models.DeviceSummary{DeviceID: fresh.ID, LastReport: &last, AntivirusInfo: true, SystemInfo: true})
	return seeded{store: s, fresh: fresh, stale: stale}
}

func TestList_RecomputesStatus(t *testing.T) {
	env := seed(t)
	var out listResponse
	if code := get(t, newRouter(env.store), "/devices?limit=500", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Total != 2 || out.Limit != maxLimit {
		t.Errorf("total=%d limit=%d", out.Total, out.Limit)
	}
	for _, d := range out.Devices {
		want := telemetry.StatusOnline
		if d.SerialNo == "WIN-1" {
			want = telemetry.StatusOffline
		}
		if d.Status != want {
			t.Errorf("%s status = %q, want %q", d.SerialNo, d.Status, want)
		}
	}
}

func TestTable(t *testing.T) {
	env := seed(t)
	var out struct {
		Devices []struct {
			SerialNo       string `json:"serial_no"`
			OwnerName      string `json:"owner_name"`
			ComputerName   string `json:"computer_name"`
			Status         string `json:"status"`
			HasAntivirus   bool   `json:"has_antivirus"`
			SecurityStatus struct {
				Antivirus bool `json:"antivirus"`
			} `json:"security_status"`
		} `json:"devices"`
		Total   int64        `json:"total"`
		Filters tableFilters `json:"filters"`
	}
	if code := get(t, newRouter(env.store), "/devices/table?os_type=darwin", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Total != 1 || len(out.Devices) != 1 || out.Filters.OSType != "darwin" {
		t.Fatalf("table = %+v", out)
	}
	row := out.Devices[0]
	if row.OwnerName != "Anna Ivanova" || row.ComputerName != "anna-mbp" {
		t.Errorf("row = %+v", row)
	}
	if !row.HasAntivirus || !row.SecurityStatus.Antivirus || row.Status != telemetry.StatusOnline {
		t.Errorf("row flags = %+v", row)
	}
}

func TestGet(t *testing.T) {
	env := seed(t)
	r := newRouter(env.store)

	var out struct {
		Device  models.Device                      `json:"device"`
		Summary *models.DeviceSummary              `json:"summary"`
		Data    map[string]*models.TelemetryRecord `json:"data"`
	}
	if code := get(t, r, fmt.Sprintf("/devices/%d", env.fresh.ID), &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Summary == nil || !out.Summary.AntivirusInfo {
		t.Errorf("summary = %+v", out.Summary)
	}
	if len(out.Data) != len(telemetry.All) {
		t.Errorf("data keys = %d, want %d", len(out.Data), len(telemetry.All))
	}
	if out.Data["apps_info"] != nil || out.Data["antivirus_info"] == nil {
		t.Errorf("data = %+v", out.Data)
	}
	if code := get(t, r, "/devices/999", nil); code != http.StatusNotFound {
		t.Errorf("missing device: %d", code)
	}
}

func TestData(t *testing.T) {
	env := seed(t)
	r := newRouter(env.store)
	base := fmt.Sprintf("/devices/%d/data/", env.fresh.ID)

	var out dataResponse
	if code := get(t, r, base+"antivirus_info", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.DataType != "antivirus_info" || out.DeviceID != env.fresh.ID {
		t.Errorf("data = %+v", out)
	}
	if code := get(t, r, base+"apps_info", nil); code != http.StatusNotFound {
		t.Errorf("no records: %d, want 404", code)
	}
	if code := get(t, r, base+"admins", nil); code != http.StatusBadRequest {
		t.Errorf("unknown type: %d, want 400", code)
	}
}

func TestHistoryPaging(t *testing.T) {
	env := seed(t)
	var out historyResponse
	path := fmt.Sprintf("/devices/%d/data/antivirus_info/history?page=2&limit=2", env.fresh.ID)
	if code := get(t, newRouter(env.store), path, &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Total != 5 || len(out.Items) != 2 || out.Page != 2 {
		t.Errorf("history = total %d items %d page %d", out.Total, len(out.Items), out.Page)
	}
	if !out.Items[0].Timestamp.After(out.Items[1].Timestamp) {
		t.Error("history must be newest first")
	}
}

// tripwire падает на любом обращении к хранилищу.
type tripwire struct {
	Store
	t *testing.T
}

func (s tripwire) FindByID(context.Context, uint) (*models.Device, error) {
	s.t.Error("store queried before validation")
	return nil, repo.ErrNotFound
}

func (s tripwire) History(context.Context, telemetry.Category, uint, int, int) ([]models.TelemetryRecord, int64, error) {
	s.t.Error("store queried before validation")
	return nil, 0, nil
}

func TestHistoryValidatesBeforeQuery(t *testing.T) {
	r := newRouter(tripwire{t: t})
	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "page=0", "page=-1", "page=x"} {
		if code := get(t, r, "/devices/1/data/antivirus_info/history?"+q, nil); code != http.StatusBadRequest {
			t.Errorf("%s: %d, want 400", q, code)
		}
	}
	if code := get(t, r, "/devices/1/data/nope/history", nil); code != http.StatusBadRequest {
		t.Errorf("unknown type: %d, want 400", code)
	}
}

func TestStats(t *testing.T) {
	env := seed(t)
	var out repo.DeviceStats
	if code := get(t, newRouter(env.store), "/devices/dashboard/stats", &out); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if out.Total != 2 || out.Online != 1 || out.RecentActivity != 1 || len(out.ByOS) != 2 {
		t.Errorf("stats = %+v", out)
	}
}
