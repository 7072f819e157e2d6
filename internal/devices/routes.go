package devices

import "github.com/gorilla/mux"

// RegisterRoutes вешает API устройств на /devices; все маршруты под gate.
func RegisterRoutes(r *mux.Router, h *Handler, gate mux.MiddlewareFunc) {
	sub := r.PathPrefix("/devices").Subrouter()
	sub.Use(gate)
	sub.HandleFunc("", h.List).Methods("GET")
	sub.HandleFunc("/", h.List).Methods("GET")
	sub.HandleFunc("/table", h.Table).Methods("GET")
	sub.HandleFunc("/dashboard/stats", h.Stats).Methods("GET")
	sub.HandleFunc("/{id:[0-9]+}", h.Get).Methods("GET")
	sub.HandleFunc("/{id:[0-9]+}/data/{type}", h.Data).Methods("GET")
	sub.HandleFunc("/{id:[0-9]+}/data/{type}/history", h.History).Methods("GET")
}
