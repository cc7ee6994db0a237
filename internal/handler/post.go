package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shotzi/internal/httputil"
	"shotzi/internal/model"
	"shotzi/internal/view"
)

type PostHandler struct {
	deps view.Deps
}

func NewPostHandler(deps view.Deps) *PostHandler {
	return &PostHandler{deps: deps}
}

// feedResponse carries the snapshot plus the degraded-load error, if any.
type feedResponse struct {
	Posts []model.Post `json:"posts"`
	Error string       `json:"error,omitempty"`
}

// maxFeedPages caps how many scroll windows one request may ask for.
const maxFeedPages = 10

// Feed handles GET /feed?pages=N
// pages extends the snapshot by N-1 extra scroll windows for clients
// restoring an infinite-scroll position. A failed load degrades to an empty
// list with the error reported alongside.
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	pages := 1
	if raw := r.URL.Query().Get("pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFeedPages {
			httputil.WriteBadRequest(w, "pages must be between 1 and "+strconv.Itoa(maxFeedPages))
			return
		}
		pages = n
	}

	session := view.OpenFeed(r.Context(), h.deps, userID)
	defer session.Close()

	for i := 1; i < pages; i++ {
		added, err := session.LoadMore(r.Context())
		if err != nil {
			log.Printf("[Post] Feed LoadMore FAILED: user=%d page=%d err=%v", userID, i, err)
			break
		}
		if added == 0 {
			break
		}
	}

	resp := feedResponse{Posts: session.Posts()}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type postDetailResponse struct {
	Post     *model.Post         `json:"post"`
	Comments []*view.CommentNode `json:"comments"`
	Error    string              `json:"error,omitempty"`
}

// GetByID handles GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, _ := middlewareUserID(r)

	postID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	session := view.OpenPostDetail(r.Context(), h.deps, userID, postID)
	defer session.Close()

	post := session.Post()
	if post == nil {
		httputil.WriteNotFound(w, "Post not found")
		return
	}

	resp := postDetailResponse{Post: post, Comments: session.CommentTree()}
	if err := session.Err(); err != nil {
		resp.Error = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type submitPostRequest struct {
	ImageURL string  `json:"image_url"`
	Caption  *string `json:"caption"`
}

// Submit handles POST /posts
// New posts land in the moderation queue, not the public feed.
func (h *PostHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req submitPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	pending, err := h.deps.Moderation.Submit(r.Context(), userID, req.ImageURL, req.Caption)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrNoImage):
			httputil.WriteBadRequest(w, "An image is required")
		case errors.Is(err, model.ErrCaptionTooLong):
			httputil.WriteBadRequest(w, "Caption too long (max 2200 characters)")
		default:
			log.Printf("[ERROR] Submit post handler: user=%d err=%v", userID, err)
			httputil.WriteInternalError(w, "Failed to submit post")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, pending)
}

// Delete handles DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if err := h.deps.Social.DeletePost(r.Context(), userID, postID); err != nil {
		switch {
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		case errors.Is(err, model.ErrNotPostOwner):
			httputil.WriteForbidden(w, "You can only delete your own posts")
		default:
			log.Printf("[ERROR] Delete post handler: user=%d post=%d err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to delete post")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Like handles POST /posts/{id}/like
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, true)
}

// Unlike handles DELETE /posts/{id}/like
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, false)
}

func (h *PostHandler) toggleLike(w http.ResponseWriter, r *http.Request, like bool) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	postID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if like {
		err = h.deps.Social.LikePost(r.Context(), userID, postID)
	} else {
		err = h.deps.Social.UnlikePost(r.Context(), userID, postID)
	}
	if err != nil {
		log.Printf("[ERROR] Toggle like handler: user=%d post=%d err=%v", userID, postID, err)
		httputil.WriteInternalError(w, "Failed to update like")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses a chi URL parameter as an int64.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
