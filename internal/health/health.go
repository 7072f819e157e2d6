package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"scanx/internal/models"
	"scanx/internal/tz"
)

// Banner: ответ на GET /.
type Banner struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Time    string `json:"time"`
}

// RegisterRoutes: баннер сервиса и liveness.
func RegisterRoutes(r *mux.Router, service string) {
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		models.WriteJSON(w, http.StatusOK, Banner{Service: service, Status: "running", Time: tz.Format(tz.Now())})
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", liveness).Methods(http.MethodGet)
}

// RegisterRoutesWithDB: то же + readiness (ping БД с таймаутом).
func RegisterRoutesWithDB(r *mux.Router, service string, db *gorm.DB) {
	RegisterRoutes(r, service)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if db == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			http.Error(w, "db handle error", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
