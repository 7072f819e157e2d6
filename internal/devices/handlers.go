// Package devices: API дашборда по устройствам: списки, карточка,
// данные категорий и статистика.
package devices

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"scanx/internal/compliance"
	"scanx/internal/models"
	"scanx/internal/repo"
	"scanx/internal/telemetry"
	"scanx/internal/tz"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Store interface {
	List(ctx context.Context, f repo.DeviceFilter) ([]models.Device, int64, error)
	FindByID(ctx context.Context, id uint) (*models.Device, error)
	Summary(ctx context.Context, deviceID uint) (*models.DeviceSummary, error)
	Summaries(ctx context.Context, ids []uint) (map[uint]models.DeviceSummary, error)
	Latest(ctx context.Context, c telemetry.Category, deviceID uint) (*models.TelemetryRecord, error)
	LatestByDevice(ctx context.Context, c telemetry.Category, ids []uint) (map[uint]models.TelemetryRecord, error)
	History(ctx context.Context, c telemetry.Category, deviceID uint, offset, limit int) ([]models.TelemetryRecord, int64, error)
	Stats(ctx context.Context, now time.Time) (*repo.DeviceStats, error)
}

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, now: tz.Now}
}

type listResponse struct {
	Devices []models.Device `json:"devices"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

type tableFilters struct {
	Search string `json:"search"`
	OSType string `json:"os_type"`
}

type tableResponse struct {
	Devices []compliance.Row `json:"devices"`
	Total   int64            `json:"total"`
	Filters tableFilters     `json:"filters"`
}

type detailResponse struct {
	Device  *models.Device                     `json:"device"`
	Summary *models.DeviceSummary              `json:"summary"`
	Data    map[string]*models.TelemetryRecord `json:"data"`
}

type dataResponse struct {
	DeviceID  uint      `json:"device_id"`
	DataType  string    `json:"data_type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	HasError  bool      `json:"has_error"`
}

type historyResponse struct {
	Items []models.TelemetryRecord `json:"items"`
	Total int64                    `json:"total"`
	Page  int                      `json:"page"`
	Limit int                      `json:"limit"`
}

// GET /devices?page&limit&search: limit зажимается в [1,100].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := models.QueryInt(r, "page", 1)
	if !ok || page < 1 {
		page = 1
	}
	limit, ok := models.QueryInt(r, "limit", defaultLimit)
	if !ok {
		limit = defaultLimit
	}
	limit = min(max(limit, 1), maxLimit)

	rows, total, err := h.store.List(r.Context(), repo.DeviceFilter{
		Search: r.URL.Query().Get("search"),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	now := h.now()
	for i := range rows {
		rows[i].Status = telemetry.DeviceStatus(rows[i].LastSeen, now)
	}
	if rows == nil {
		rows = []models.Device{}
	}
	models.WriteJSON(w, http.StatusOK, listResponse{Devices: rows, Total: total, Page: page, Limit: limit})
}

// GET /devices/table?search&os_type
func (h *Handler) Table(w http.ResponseWriter, r *http.Request) {
	f := tableFilters{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		OSType: strings.TrimSpace(r.URL.Query().Get("os_type")),
	}
	ctx := r.Context()
	devs, total, err := h.store.List(ctx, repo.DeviceFilter{Search: f.Search, OSType: f.OSType})
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	ids := make([]uint, len(devs))
	for i, d := range devs {
		ids[i] = d.ID
	}
	sums, err := h.store.Summaries(ctx, ids)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	sys, err := h.store.LatestByDevice(ctx, telemetry.SystemInfo, ids)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}

	now := h.now()
	rows := make([]compliance.Row, 0, len(devs))
	for _, d := range devs {
		var sum *models.DeviceSummary
		if s, ok := sums[d.ID]; ok {
			sum = &s
		}
		var rec *models.TelemetryRecord
		if s, ok := sys[d.ID]; ok {
			rec = &s
		}
		rows = append(rows, compliance.BuildRow(d, sum, rec, now))
	}
	models.WriteJSON(w, http.StatusOK, tableResponse{Devices: rows, Total: total, Filters: f})
}

// GET /devices/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.device(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sum, err := h.store.Summary(ctx, d.ID)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	data := make(map[string]*models.TelemetryRecord, len(telemetry.All))
	for _, c := range telemetry.All {
		rec, err := h.store.Latest(ctx, c, d.ID)
		if err != nil {
			models.WriteInternal(w, err)
			return
		}
		data[c.String()] = rec
	}
	d.Status = telemetry.DeviceStatus(d.LastSeen, h.now())
	models.WriteJSON(w, http.StatusOK, detailResponse{Device: d, Summary: sum, Data: data})
}

// GET /devices/{id}/data/{type}
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	c, ok := category(w, r)
	if !ok {
		return
	}
	d, ok := h.device(w, r)
	if !ok {
		return
	}
	rec, err := h.store.Latest(r.Context(), c, d.ID)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	if rec == nil {
		models.WriteError(w, http.StatusNotFound, "No data found for "+c.String())
		return
	}
	models.WriteJSON(w, http.StatusOK, dataResponse{
		DeviceID:  d.ID,
		DataType:  c.String(),
		Data:      rec.Data,
		Timestamp: rec.Timestamp,
		HasError:  rec.HasError,
	})
}

// GET /devices/{id}/data/{type}/history?page&limit: параметры
// проверяются до обращения к хранилищу.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	page, ok := models.QueryInt(r, "page", 1)
	if !ok || page < 1 {
		models.WriteError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, ok := models.QueryInt(r, "limit", defaultLimit)
	if !ok || limit < 1 || limit > maxLimit {
		models.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	c, ok := category(w, r)
	if !ok {
		return
	}
	d, ok := h.device(w, r)
	if !ok {
		return
	}
	items, total, err := h.store.History(r.Context(), c, d.ID, (page-1)*limit, limit)
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	if items == nil {
		items = []models.TelemetryRecord{}
	}
	models.WriteJSON(w, http.StatusOK, historyResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// GET /devices/dashboard/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.store.Stats(r.Context(), h.now())
	if err != nil {
		models.WriteInternal(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) device(w http.ResponseWriter, r *http.Request) (*models.Device, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		models.WriteError(w, http.StatusBadRequest, "Invalid device id")
		return nil, false
	}
	d, err := h.store.FindByID(r.Context(), uint(id))
	if errors.Is(err, repo.ErrNotFound) {
		models.WriteError(w, http.StatusNotFound, "Device not found")
		return nil, false
	}
	if err != nil {
		models.WriteInternal(w, err)
		return nil, false
	}
	return d, true
}

func category(w http.ResponseWriter, r *http.Request) (telemetry.Category, bool) {
	name := mux.Vars(r)["type"]
	c, ok := telemetry.Parse(name)
	if !ok {
		models.WriteError(w, http.StatusBadRequest, "Invalid data type: "+name)
	}
	return c, ok
}
