// Package agent: HTTP-вход для отчётов агентов на конечных устройствах.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"scanx/internal/ingest"
	"scanx/internal/middleware"
	"scanx/internal/models"
)

// MaxReportBytes: предел тела отчёта (apps_info бывает большим).
const MaxReportBytes = 16 << 20

type Ingester interface {
	Ingest(ctx context.Context, rep ingest.Report) (*ingest.Result, error)
}

type Handler struct {
	svc Ingester
}

func New(svc Ingester) *Handler {
	return &Handler{svc: svc}
}

// POST /agent/report
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	var rep ingest.Report
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxReportBytes))
	if err := dec.Decode(&rep); err != nil {
		models.WriteJSON(w, http.StatusBadRequest, models.ErrorBody{
			Message: "Invalid report body",
			Error:   err.Error(),
		})
		return
	}

	res, err := h.svc.Ingest(r.Context(), rep)
	if err != nil {
		var rej *ingest.Error
		if errors.As(err, &rej) {
			middleware.Log(r, "agent").WithFields(logrus.Fields{
				"serial_no": rep.SerialNo,
				"user":      rep.User,
				"status":    rej.Status,
			}).Warn(rej.Message)
			models.WriteError(w, rej.Status, rej.Message)
			return
		}
		middleware.Log(r, "agent").WithError(err).WithField("serial_no", rep.SerialNo).Error("report failed")
		models.WriteInternal(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, res)
}
