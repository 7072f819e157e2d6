package users

import "github.com/gorilla/mux"

func RegisterRoutes(r *mux.Router, h *Handler, gate mux.MiddlewareFunc) {
	sub := r.PathPrefix("/users").Subrouter()
	sub.Use(gate)
	sub.HandleFunc("", h.List).Methods("GET")
	sub.HandleFunc("/", h.List).Methods("GET")
	sub.HandleFunc("/totalusers", h.Total).Methods("GET")
	sub.HandleFunc("/{id:[0-9]+}/account-type", h.UpdateAccountType).Methods("PUT")
	sub.HandleFunc("/{id:[0-9]+}", h.Delete).Methods("DELETE")
}
