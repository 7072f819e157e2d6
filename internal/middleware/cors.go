package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORS для дашборда: cookie сессии ходит только с явно разрешённых origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-Id"}),
		handlers.ExposedHeaders([]string{"X-Request-Id"}),
	)
}
