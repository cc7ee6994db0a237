package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"shotzi/internal/httputil"
	"shotzi/internal/model"
	"shotzi/internal/optimistic"
	"shotzi/internal/view"
)

type MessageHandler struct {
	deps view.Deps
}

func NewMessageHandler(deps view.Deps) *MessageHandler {
	return &MessageHandler{deps: deps}
}

type conversationsResponse struct {
	Conversations []model.Conversation `json:"conversations"`
	TotalUnread   int                  `json:"total_unread"`
	Error         string               `json:"error,omitempty"`
}

// Conversations handles GET /messages
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	session := view.OpenConversations(r.Context(), h.deps, userID)
	defer session.Close()

	resp := conversationsResponse{
		Conversations: session.Conversations(),
		TotalUnread:   session.TotalUnread(),
	}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type threadResponse struct {
	Messages []optimistic.Entry[model.DirectMessage] `json:"messages"`
	Error    string                                  `json:"error,omitempty"`
}

// Thread handles GET /messages/{id}
// Opening a thread marks it read.
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	partnerID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	session := view.OpenThread(r.Context(), h.deps, userID, partnerID)
	defer session.Close()

	resp := threadResponse{Messages: session.Messages()}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// Send handles POST /messages/{id}
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	partnerID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	msg, err := h.deps.Messaging.SendDirect(r.Context(), userID, partnerID, req.Message)
	if err != nil {
		h.writeSendError(w, userID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// DeleteDirect handles DELETE /messages/direct/{id}
func (h *MessageHandler) DeleteDirect(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	messageID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid message ID")
		return
	}

	if err := h.deps.Messaging.DeleteDirect(r.Context(), userID, messageID); err != nil {
		h.writeDeleteError(w, userID, messageID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type chatResponse struct {
	Messages []optimistic.Entry[model.GlobalMessage] `json:"messages"`
	Error    string                                  `json:"error,omitempty"`
}

// Chat handles GET /chat
func (h *MessageHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	session := view.OpenGlobalChat(r.Context(), h.deps, userID)
	defer session.Close()

	resp := chatResponse{Messages: session.Messages()}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// SendChat handles POST /chat
func (h *MessageHandler) SendChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	msg, err := h.deps.Messaging.SendGlobal(r.Context(), userID, req.Message)
	if err != nil {
		h.writeSendError(w, userID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, msg)
}

// DeleteChat handles DELETE /chat/{id}
func (h *MessageHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	messageID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid message ID")
		return
	}

	if err := h.deps.Messaging.DeleteGlobal(r.Context(), userID, messageID); err != nil {
		h.writeDeleteError(w, userID, messageID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) writeSendError(w http.ResponseWriter, userID int64, err error) {
	switch {
	case errors.Is(err, model.ErrEmptyMessage):
		httputil.WriteBadRequest(w, "Message text is required")
	case errors.Is(err, model.ErrMessageTooLong):
		httputil.WriteBadRequest(w, "Message too long (max 4000 characters)")
	case errors.Is(err, model.ErrCannotMessageSelf):
		httputil.WriteBadRequest(w, "You cannot message yourself")
	default:
		log.Printf("[ERROR] Send message handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to send message")
	}
}

func (h *MessageHandler) writeDeleteError(w http.ResponseWriter, userID, messageID int64, err error) {
	switch {
	case errors.Is(err, model.ErrMessageNotFound):
		httputil.WriteNotFound(w, "Message not found")
	case errors.Is(err, model.ErrNotMessageOwner):
		httputil.WriteForbidden(w, "You can only delete your own messages")
	default:
		log.Printf("[ERROR] Delete message handler: user=%d message=%d err=%v", userID, messageID, err)
		httputil.WriteInternalError(w, "Failed to delete message")
	}
}
