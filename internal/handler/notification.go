package handler

import (
	"log"
	"net/http"

	"shotzi/internal/httputil"
	"shotzi/internal/model"
	"shotzi/internal/view"
)

type NotificationHandler struct {
	deps view.Deps
}

func NewNotificationHandler(deps view.Deps) *NotificationHandler {
	return &NotificationHandler{deps: deps}
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unread_count"`
	Error         string               `json:"error,omitempty"`
}

// GetUnread handles GET /notifications
func (h *NotificationHandler) GetUnread(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	session := view.OpenNotifications(r.Context(), h.deps, userID)
	defer session.Close()

	resp := notificationsResponse{
		Notifications: session.Unread(),
		UnreadCount:   session.UnreadCount(),
	}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// MarkRead handles POST /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	notificationID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid notification ID")
		return
	}

	session := view.OpenNotifications(r.Context(), h.deps, userID)
	defer session.Close()

	if err := session.MarkRead(r.Context(), notificationID); err != nil {
		log.Printf("[ERROR] MarkRead handler: user=%d notification=%d err=%v", userID, notificationID, err)
		httputil.WriteInternalError(w, "Failed to mark notification read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
