package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lotta-llamas/api/internal/domain/comment"
	"github.com/lotta-llamas/api/internal/domain/post"
	svcerrors "github.com/lotta-llamas/api/internal/errors"
	"github.com/lotta-llamas/api/internal/httputil"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage"
)

type postPayload struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	ContentID string `json:"contentId"`
}

type postRequest struct {
	Post postPayload `json:"post"`
}

type postWithComments struct {
	post.Post
	Comments []comment.Comment `json:"comments"`
}

// guardContent loads a content record and checks the caller holds its
// gating asset.
func (a *API) guardContent(w http.ResponseWriter, r *http.Request, ac middleware.AuthContext, contentID string) bool {
	record, err := a.store.GetContent(r.Context(), contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Content not found"))
			return false
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return false
	}
	if !hasAsset(ac.Assets, record.Token) {
		httputil.WriteError(w, svcerrors.Unauthorized("Token not available in wallet"))
		return false
	}
	return true
}

func (a *API) handleListPosts(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	contentID := r.URL.Query().Get("contentId")
	if contentID == "" || uuid.Validate(contentID) != nil {
		httputil.WriteError(w, svcerrors.MissingParams("Missing contentId or malformed"))
		return
	}

	if !a.guardContent(w, r, ac, contentID) {
		return
	}

	posts, err := a.store.ListPostsByContent(r.Context(), contentID)
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// handleGetPost returns one post together with its comments.
func (a *API) handleGetPost(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())
	postID := mux.Vars(r)["postId"]

	if err := uuid.Validate(postID); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Post ID malformed"))
		return
	}

	record, err := a.store.GetPost(r.Context(), postID)
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

	comments, err := a.store.ListCommentsByPost(r.Context(), postID)
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"post": postWithComments{Post: record, Comments: comments},
	})
}

func (a *API) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())

	var req postRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Malformed request body"))
		return
	}
	payload := req.Post

	if payload.ContentID == "" || uuid.Validate(payload.ContentID) != nil {
		httputil.WriteError(w, svcerrors.MissingParams("Missing contentId or malformed"))
		return
	}
	if payload.Text == "" {
		httputil.WriteError(w, svcerrors.MissingParams("Missing content"))
		return
	}
	if payload.Title == "" {
		httputil.WriteError(w, svcerrors.MissingParams("Missing title"))
		return
	}

	if !a.guardContent(w, r, ac, payload.ContentID) {
		return
	}

	created, err := a.store.CreatePost(r.Context(), post.Post{
		ContentID: payload.ContentID,
		WalletID:  ac.Address,
		Title:     payload.Title,
		Text:      payload.Text,
	})
	if err != nil {
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}

	a.log.WithContext(r.Context()).Infof("address %s creating post on content %s", ac.Address, payload.ContentID)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"post": created})
}

func (a *API) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())
	postID := mux.Vars(r)["postId"]

	if err := uuid.Validate(postID); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Post ID malformed"))
		return
	}

	var req postRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Malformed request body"))
		return
	}
	if req.Post.Title == "" {
		httputil.WriteError(w, svcerrors.InvalidInput("Missing title"))
		return
	}
	if req.Post.Text == "" {
		httputil.WriteError(w, svcerrors.InvalidInput("Missing content"))
		return
	}

	updated, err := a.store.UpdatePost(r.Context(), post.Post{
		ID:       postID,
		WalletID: ac.Address,
		Title:    req.Post.Title,
		Text:     req.Post.Text,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Post not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"post": updated})
}

func (a *API) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	ac, _ := middleware.FromContext(r.Context())
	postID := mux.Vars(r)["postId"]

	if err := uuid.Validate(postID); err != nil {
		httputil.WriteError(w, svcerrors.InvalidInput("Post ID malformed"))
		return
	}

	if err := a.store.SoftDeletePost(r.Context(), postID, ac.Address); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteError(w, svcerrors.NotFound("Post not found"))
			return
		}
		httputil.WriteError(w, svcerrors.Internal("", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"data": "Post deleted"})
}
