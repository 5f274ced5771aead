package handler

import (
	"net/http"

	"brevity-server/internal/domain"
)

// AuthHandler serves the caller's own account: identity and credits
type AuthHandler struct {
	service domain.ConversionService
	logger  domain.Logger
}

// NewAuthHandler creates a new account handler
func NewAuthHandler(service domain.ConversionService, logger domain.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

type creditsResponse struct {
	MaxCredits       int `json:"max_credits"`
	UsedCredits      int `json:"used_credits"`
	RemainingCredits int `json:"remaining_credits"`
}

type profileResponse struct {
	ID      string          `json:"id"`
	Email   string          `json:"email"`
	Credits creditsResponse `json:"credits"`
}

// GetProfile returns the current user's identity with their credit balance
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	token, _ := GetTokenFromContext(r)

	account, err := h.service.GetCredits(r.Context(), user.ID, token)
	if err != nil {
		writeAppError(w, h.logger, err, "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:      user.ID,
		Email:   user.Email,
		Credits: toCreditsResponse(account),
	})
}

// GetCredits handles GET /credits
func (h *AuthHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	user, ok := GetUserFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return
	}
	token, _ := GetTokenFromContext(r)

	account, err := h.service.GetCredits(r.Context(), user.ID, token)
	if err != nil {
		writeAppError(w, h.logger, err, "user_id", user.ID)
		return
	}
	writeJSON(w, http.StatusOK, toCreditsResponse(account))
}

func toCreditsResponse(account *domain.QuotaAccount) creditsResponse {
	return creditsResponse{
		MaxCredits:       account.MaxCredits,
		UsedCredits:      account.UsedCredits,
		RemainingCredits: account.Remaining(),
	}
}
