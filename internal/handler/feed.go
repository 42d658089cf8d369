package handler

import (
	"log"
	"net/http"

	"warbler/internal/httputil"
	"warbler/internal/service"
	"warbler/internal/transport/http/middleware"
)

// FeedHandler serves the home timeline.
type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// GetFeed handles GET /feed
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	resp, err := h.feedService.GetFeed(r.Context(), userID, queryCursor(r), queryLimit(r))
	if err != nil {
		log.Printf("[FeedHandler] GetFeed error: %v", err)
		httputil.WriteInternalError(w, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
