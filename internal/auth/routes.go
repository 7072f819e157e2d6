package auth

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler, gate mux.MiddlewareFunc) {
	sub := r.PathPrefix("/auth").Subrouter()
	sub.HandleFunc("/register", h.Register).Methods("POST")
	sub.HandleFunc("/login", h.Login).Methods("POST")

	sub.Handle("/me", gate(http.HandlerFunc(h.Me))).Methods("GET")
	sub.Handle("/logout", gate(http.HandlerFunc(h.Logout))).Methods("GET")
	sub.Handle("/delete", gate(http.HandlerFunc(h.Delete))).Methods("DELETE")
	sub.Handle("/admins", gate(http.HandlerFunc(h.Admins))).Methods("GET")
}
