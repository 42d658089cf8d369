package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"warbler/internal/httputil"
	"warbler/internal/model"
	"warbler/internal/service"
	"warbler/internal/session"
	"warbler/internal/transport/http/middleware"
)

// UserHandler handles user listing, profiles and account management.
type UserHandler struct {
	userService    *service.UserService
	messageService *service.MessageService
}

func NewUserHandler(userService *service.UserService, messageService *service.MessageService) *UserHandler {
	return &UserHandler{
		userService:    userService,
		messageService: messageService,
	}
}

// List handles GET /users?q=<prefix>
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	users, err := h.userService.List(r.Context(), query, queryLimit(r), viewerID(r))
	if err != nil {
		log.Printf("[UserHandler] List error: %v", err)
		httputil.WriteInternalError(w, "Failed to list users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.UserListResponse{Users: users})
}

// GetProfile handles GET /users/{userID}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, viewerID(r))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[UserHandler] GetProfile error: %v", err)
		httputil.WriteInternalError(w, "Failed to get profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles POST /users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidCredentials):
			// Wrong password means no edit, flashed like any other refusal
			httputil.WriteAccessUnauthorized(w)
		case errors.Is(err, model.ErrUsernameTaken):
			httputil.WriteConflict(w, "Username already taken")
		case errors.Is(err, model.ErrEmailTaken):
			httputil.WriteConflict(w, "Email already taken")
		case errors.Is(err, model.ErrInvalidEmail):
			httputil.WriteBadRequest(w, "Invalid email address")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User Updated!",
		"user":    user,
	})
}

// DeleteAccount handles POST /users/delete
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	if err := h.userService.DeleteAccount(r.Context(), userID); err != nil {
		log.Printf("[UserHandler] DeleteAccount error: %v", err)
		httputil.WriteInternalError(w, "Failed to delete account")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "User deleted.",
	})
}

// GetUserMessages handles GET /users/{userID}/messages
func (h *UserHandler) GetUserMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	resp, err := h.messageService.GetUserMessages(r.Context(), userID, queryCursor(r), queryLimit(r), viewerID(r))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[UserHandler] GetUserMessages error: %v", err)
		httputil.WriteInternalError(w, "Failed to get messages")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// GetLikes handles GET /users/{userID}/likes
func (h *UserHandler) GetLikes(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	resp, err := h.messageService.GetLikedMessages(r.Context(), userID, queryCursor(r), queryLimit(r), viewerID(r))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[UserHandler] GetLikes error: %v", err)
		httputil.WriteInternalError(w, "Failed to get liked messages")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
