package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"warbler/internal/httputil"
	"warbler/internal/model"
	"warbler/internal/service"
	"warbler/internal/transport/http/middleware"
)

// MessageHandler handles message creation, viewing, deletion and likes.
type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// Create handles POST /messages/new
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req model.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	message, err := h.messageService.Create(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTextRequired):
			httputil.WriteBadRequest(w, "Message text is required")
		case errors.Is(err, model.ErrTextTooLong):
			httputil.WriteBadRequest(w, "Message text must be 140 characters or fewer")
		default:
			log.Printf("[MessageHandler] Create error: %v", err)
			httputil.WriteInternalError(w, "Failed to create message")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, message)
}

// GetByID handles GET /messages/{messageID}
func (h *MessageHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	messageID, err := pathID(r, "messageID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid message ID")
		return
	}

	message, err := h.messageService.GetByID(r.Context(), messageID, viewerID(r))
	if err != nil {
		if errors.Is(err, model.ErrMessageNotFound) {
			httputil.WriteNotFound(w, "Message not found")
			return
		}
		log.Printf("[MessageHandler] GetByID error: %v", err)
		httputil.WriteInternalError(w, "Failed to get message")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, message)
}

// Delete handles POST /messages/{messageID}/delete. Deleting someone else's
// message is refused with the uniform unauthorized body and the row stays.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	messageID, err := pathID(r, "messageID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid message ID")
		return
	}

	if err := h.messageService.Delete(r.Context(), messageID, userID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotMessageOwner):
			httputil.WriteAccessUnauthorized(w)
		case errors.Is(err, model.ErrMessageNotFound):
			httputil.WriteNotFound(w, "Message not found")
		default:
			log.Printf("[MessageHandler] Delete error: %v", err)
			httputil.WriteInternalError(w, "Failed to delete message")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Message deleted.",
	})
}

// ToggleLike handles POST /users/add_like/{messageID}. A repeat like undoes
// the first one.
func (h *MessageHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	messageID, err := pathID(r, "messageID")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid message ID")
		return
	}

	resp, err := h.messageService.ToggleLike(r.Context(), messageID, userID)
	if err != nil {
		if errors.Is(err, model.ErrMessageNotFound) {
			httputil.WriteNotFound(w, "Message not found")
			return
		}
		log.Printf("[MessageHandler] ToggleLike error: %v", err)
		httputil.WriteInternalError(w, "Failed to toggle like")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
