package models

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Problem представляет ответ об ошибке в стиле RFC 7807.
// Используется только для паник (Recoverer).
type Problem struct {
	Type     string      `json:"type,omitempty"`
	Title    string      `json:"title"`
	Status   int         `json:"status"`
	Detail   string      `json:"detail,omitempty"`
	Instance string      `json:"instance,omitempty"`
	Extra    interface{} `json:"extra,omitempty"`
}

// ErrorBody: формат ошибок API, который понимает дашборд.
// Logout/Expired: подсказки фронтенду сбросить сессию.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Logout  bool   `json:"logout,omitempty"`
	Expired bool   `json:"expired,omitempty"`
}

// Message: успешный ответ без данных.
type Message struct {
	Message string `json:"message"`
}

func WriteProblem(w http.ResponseWriter, status int, title, detail string, extra any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Title:  title,
		Status: status,
		Detail: detail,
		Extra:  extra,
	})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Message: message})
}

// WriteInternal: 500 с текстом ошибки хранилища.
func WriteInternal(w http.ResponseWriter, err error) {
	WriteJSON(w, http.StatusInternalServerError, ErrorBody{
		Message: "internal server error",
		Error:   err.Error(),
	})
}

// QueryInt читает целый query-параметр; отсутствующий — def.
// ok=false, если параметр задан, но не число.
func QueryInt(r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
