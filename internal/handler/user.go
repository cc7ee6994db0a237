package handler

import (
	"errors"
	"log"
	"net/http"

	"shotzi/internal/httputil"
	"shotzi/internal/model"
	"shotzi/internal/view"
)

type UserHandler struct {
	deps view.Deps
}

func NewUserHandler(deps view.Deps) *UserHandler {
	return &UserHandler{deps: deps}
}

type profileResponse struct {
	User        *model.User        `json:"user"`
	Posts       []model.Post       `json:"posts"`
	Counts      model.FollowCounts `json:"counts"`
	IsFollowing bool               `json:"is_following"`
	IsOnline    bool               `json:"is_online"`
	Error       string             `json:"error,omitempty"`
}

// GetProfile handles GET /users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middlewareUserID(r)

	profileID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	session := view.OpenProfile(r.Context(), h.deps, viewerID, profileID)
	defer session.Close()

	user := session.User()
	if user == nil {
		httputil.WriteNotFound(w, "User not found")
		return
	}

	resp := profileResponse{
		User:        user,
		Posts:       session.Posts(),
		Counts:      session.Counts(),
		IsFollowing: session.IsFollowing(),
		IsOnline:    model.IsOnline(user.LastActive, timeNow()),
	}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type followListResponse struct {
	Users []model.UserSummary `json:"users"`
	Error string              `json:"error,omitempty"`
}

// Followers handles GET /users/{id}/followers
func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.followList(w, r, view.FollowersList)
}

// Following handles GET /users/{id}/following
func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.followList(w, r, view.FollowingList)
}

func (h *UserHandler) followList(w http.ResponseWriter, r *http.Request, kind view.FollowKind) {
	profileID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	session := view.OpenFollowList(r.Context(), h.deps, profileID, kind)
	defer session.Close()

	resp := followListResponse{Users: session.Users()}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Follow handles POST /users/{id}/follow
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.toggleFollow(w, r, true)
}

// Unfollow handles DELETE /users/{id}/follow
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.toggleFollow(w, r, false)
}

func (h *UserHandler) toggleFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	if follow {
		err = h.deps.Social.Follow(r.Context(), userID, targetID)
	} else {
		err = h.deps.Social.Unfollow(r.Context(), userID, targetID)
	}
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteBadRequest(w, "You cannot follow yourself")
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteNotFound(w, "Not following this user")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		default:
			log.Printf("[ERROR] Toggle follow handler: user=%d target=%d err=%v", userID, targetID, err)
			httputil.WriteInternalError(w, "Failed to update follow")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
