package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"warbler/internal/httputil"
	"warbler/internal/model"
	"warbler/internal/service"
	"warbler/internal/transport/http/middleware"
)

// FollowHandler handles follow edges and follower/following lists.
type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// Follow handles POST /users/follow/{userID}
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, _ := middleware.GetUserIDFromContext(r.Context())

	followeeID, err := pathID(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Follow(r.Context(), followerID, followeeID); err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, "Cannot follow yourself")
		case errors.Is(err, model.ErrAlreadyFollowing):
			httputil.WriteConflict(w, "Already following this user")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			log.Printf("[FollowHandler] Follow error: %v", err)
			httputil.WriteInternalError(w, "Failed to follow user")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Followed.",
	})
}

// Unfollow handles POST /users/stop-following/{userID}
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, _ := middleware.GetUserIDFromContext(r.Context())

	followeeID, err := pathID(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if err := h.followService.Unfollow(r.Context(), followerID, followeeID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteConflict(w, "Not following this user")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			log.Printf("[FollowHandler] Unfollow error: %v", err)
			httputil.WriteInternalError(w, "Failed to unfollow user")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Unfollowed.",
	})
}

// GetFollowers handles GET /users/{userID}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.followService.GetFollowers)
}

// GetFollowing handles GET /users/{userID}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.followService.GetFollowing)
}

type followListFn func(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error)

func (h *FollowHandler) list(w http.ResponseWriter, r *http.Request, fetch followListFn) {
	userID, err := pathID(r, "userID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var cursor *time.Time
	if s := r.URL.Query().Get("cursor"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid cursor")
			return
		}
		cursor = &t
	}

	resp, err := fetch(r.Context(), userID, cursor, queryLimit(r), viewerID(r))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[FollowHandler] list error: %v", err)
		httputil.WriteInternalError(w, "Failed to list follows")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
