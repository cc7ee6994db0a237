package handler

import (
	"errors"
	"log"
	"net/http"

	"shotzi/internal/httputil"
	"shotzi/internal/model"
	"shotzi/internal/service"
	"shotzi/internal/view"
)

type AdminHandler struct {
	deps view.Deps
	auth *service.AuthService
}

func NewAdminHandler(deps view.Deps, auth *service.AuthService) *AdminHandler {
	return &AdminHandler{deps: deps, auth: auth}
}

// requireAdmin resolves the caller and enforces the is_admin flag.
func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return 0, false
	}

	if _, err := h.auth.RequireAdmin(r.Context(), userID); err != nil {
		if errors.Is(err, model.ErrNotAdmin) {
			httputil.WriteForbidden(w, "Admin privileges required")
			return 0, false
		}
		log.Printf("[ERROR] requireAdmin: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to verify privileges")
		return 0, false
	}
	return userID, true
}

type pendingQueueResponse struct {
	Pending []model.PendingPost `json:"pending"`
	Error   string              `json:"error,omitempty"`
}

// Queue handles GET /admin/pending
func (h *AdminHandler) Queue(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	session := view.OpenAdminQueue(r.Context(), h.deps, adminID)
	defer session.Close()

	resp := pendingQueueResponse{Pending: session.Pending()}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Approve handles POST /admin/pending/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	pendingID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid pending post ID")
		return
	}

	post, err := h.deps.Moderation.Approve(r.Context(), pendingID)
	if err != nil {
		h.writeVerdictError(w, adminID, pendingID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// Reject handles POST /admin/pending/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	pendingID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid pending post ID")
		return
	}

	rejected, err := h.deps.Moderation.Reject(r.Context(), pendingID)
	if err != nil {
		h.writeVerdictError(w, adminID, pendingID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, rejected)
}

// MySubmissions handles GET /posts/pending
// A user's own queue, any status.
func (h *AdminHandler) MySubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	pending, err := h.deps.Moderation.MySubmissions(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] MySubmissions handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to load submissions")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pending)
}

func (h *AdminHandler) writeVerdictError(w http.ResponseWriter, adminID, pendingID int64, err error) {
	switch {
	case errors.Is(err, model.ErrPendingPostNotFound):
		httputil.WriteNotFound(w, "Pending post not found")
	case errors.Is(err, model.ErrAlreadyModerated):
		httputil.WriteConflict(w, "This post already received a verdict")
	default:
		log.Printf("[ERROR] Moderation verdict handler: admin=%d pending=%d err=%v", adminID, pendingID, err)
		httputil.WriteInternalError(w, "Failed to apply verdict")
	}
}
