package agent

import "github.com/gorilla/mux"

// RegisterRoutes: маршрут агента без авторизации; на /api добавляется
// ещё старый путь /devices/agent/report.
func RegisterRoutes(r *mux.Router, h *Handler, legacy bool) {
	r.HandleFunc("/agent/report", h.Report).Methods("POST")
	if legacy {
		r.HandleFunc("/devices/agent/report", h.Report).Methods("POST")
	}
}
