package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	authHandler *AuthHandler,
	conversionHandler *ConversionHandler,
	catalogHandler *CatalogHandler,
	authMiddleware func(http.Handler) http.Handler,
	allowedOrigins []string,
) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"brevity-server"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public menus
	api.HandleFunc("/styles", catalogHandler.Styles).Methods("GET")
	api.HandleFunc("/themes", catalogHandler.Themes).Methods("GET")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/auth/profile", authHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/credits", authHandler.GetCredits).Methods("GET")

	protected.HandleFunc("/conversions", conversionHandler.ListConversions).Methods("GET")
	protected.HandleFunc("/conversions", conversionHandler.Convert).Methods("POST")
	protected.HandleFunc("/conversions/{id}", conversionHandler.GetConversion).Methods("GET")
	protected.HandleFunc("/conversions/{id}", conversionHandler.DeleteConversion).Methods("DELETE")
	protected.HandleFunc("/conversions/{id}/download", conversionHandler.DownloadConversion).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
