package backend

import (
	"net/http"

	"github.com/gorilla/handlers"
)

func (b *Backend) handleCORS() {
	corsMiddleware := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.MaxAge(86400), // 24 hours
	)
	b.router.Use(corsMiddleware)
}
