package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lotta-llamas/api/internal/domain/comment"
	svcerrors "github.com/lotta-llamas/api/internal/errors"
	"github.com/lotta-llamas/api/internal/httputil"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage"
)

type commentPayload struct {
	PostID  string `json:"postId"`
	Comment string `json:"comment"`
}

type commentRequest struct {
	Comment commentPayload `json:"comment"`
}

func (a *API) handleListComments(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	contentID := r.URL.Query().Get("contentId")
	postID := r.URL.Query().Get("postId")
	if contentID == "" || uuid.Validate(contentID) != nil {
		httputil.WriteError(w, svcerrors.MissingParams("Missing contentId or malformed"))
		return
	}
	if postID == "" || uuid.Validate(postID) != nil {
		httputil.WriteError(w, svcerrors.MissingParams("Missing postId or malformed"))
		return
	}

	if !a.guardContent(w, r, ac, contentID) {
		return
	}

	comments, err := a.store.ListCommentsByPost(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

func (a *API) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	var req commentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Malformed request body"))
		return
	}
	payload := req.Comment

	if uuid.Validate(payload.PostID) != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Post ID malformed"))
		return
	}

	record, err := a.store.GetPost(r.Context(), payload.PostID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Post not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	if !a.guardContent(w, r, ac, record.ContentID) {
		return
	}

	if payload.Comment == "" {
		httputil.WriteError(w, svcerrors.MissingParams("No comment present"))
		return
	}

	created, err := a.store.CreateComment(r.Context(), comment.Comment{
		PostID:   payload.PostID,
		WalletID: ac.Address,
		Text:     payload.Comment,
	})
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"comment": created})
}

func (a *API) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())
	commentID := mux.Vars(r)["commentId"]

	if err := uuid.Validate(commentID); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Comment ID malformed"))
		return
	}

	if err := a.store.SoftDeleteComment(r.Context(), commentID, ac.Address); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Comment not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"data": "Comment deleted"})
}
