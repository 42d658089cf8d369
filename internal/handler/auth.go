package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"warbler/internal/config"
	"warbler/internal/httputil"
	"warbler/internal/model"
	"warbler/internal/service"
	"warbler/internal/session"
)

// AuthHandler handles signup, login and logout.
type AuthHandler struct {
	authService *service.AuthService
	config      *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, config: cfg}
}

// Signup handles POST /signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	resp, sessionID, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrUsernameTaken):
			httputil.WriteConflict(w, "Username already taken")
		case errors.Is(err, model.ErrEmailTaken):
			httputil.WriteConflict(w, "Email already taken")
		case errors.Is(err, model.ErrInvalidEmail):
			httputil.WriteBadRequest(w, "Invalid email address")
		default:
			// Remaining signup failures are input validation
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}

	h.setSessionCookie(w, sessionID)
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	resp, sessionID, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		log.Printf("[AuthHandler] Login error: %v", err)
		httputil.WriteInternalError(w, "Failed to log in")
		return
	}

	h.setSessionCookie(w, sessionID)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Logout handles GET /logout. Logging out twice is fine; the second call is
// a no-op.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("[AuthHandler] Logout error: %v", err)
		}
	}

	h.clearSessionCookie(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "You have successfully logged out.",
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
