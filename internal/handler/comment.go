package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"shotzi/internal/httputil"
	"shotzi/internal/model"
	"shotzi/internal/view"
)

type CommentHandler struct {
	deps view.Deps
}

func NewCommentHandler(deps view.Deps) *CommentHandler {
	return &CommentHandler{deps: deps}
}

// Create handles POST /posts/{id}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.deps.Social.Comment(r.Context(), userID, postID, req.Content, req.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment too long (max 2200 characters)")
		case errors.Is(err, model.ErrParentWrongPost):
			httputil.WriteBadRequest(w, "Parent comment belongs to a different post")
		case errors.Is(err, model.ErrPostNotFound):
			httputil.WriteNotFound(w, "Post not found")
		default:
			log.Printf("[ERROR] Create comment handler: user=%d post=%d err=%v", userID, postID, err)
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	commentID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	if err := h.deps.Social.DeleteComment(r.Context(), userID, commentID); err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentOwner):
			httputil.WriteForbidden(w, "You can only delete your own comments")
		case errors.Is(err, model.ErrCommentHasReplies):
			httputil.WriteConflict(w, "Comments with replies cannot be deleted")
		default:
			log.Printf("[ERROR] Delete comment handler: user=%d comment=%d err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to delete comment")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Like handles POST /comments/{id}/like
func (h *CommentHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, true)
}

// Unlike handles DELETE /comments/{id}/like
func (h *CommentHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, false)
}

func (h *CommentHandler) toggleLike(w http.ResponseWriter, r *http.Request, like bool) {
	userID, ok := middlewareUserID(r)
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	commentID, err := pathID(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	if like {
		err = h.deps.Social.LikeComment(r.Context(), userID, commentID)
	} else {
		err = h.deps.Social.UnlikeComment(r.Context(), userID, commentID)
	}
	if err != nil {
		log.Printf("[ERROR] Toggle comment like handler: user=%d comment=%d err=%v", userID, commentID, err)
		httputil.WriteInternalError(w, "Failed to update like")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
