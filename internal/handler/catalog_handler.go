package handler

import (
	"net/http"

	"brevity-server/internal/domain"
)

// CatalogHandler exposes the summary styles and report themes a client can pick from
type CatalogHandler struct{}

func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// Styles handles GET /styles
func (h *CatalogHandler) Styles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Styles())
}

// Themes handles GET /themes
func (h *CatalogHandler) Themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"default": domain.DefaultThemeKey,
		"themes":  domain.Themes(),
	})
}
